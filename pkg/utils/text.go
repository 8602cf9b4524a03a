package utils

// Preview returns the first maxLen bytes of s, cut at a rune boundary.
// Used for citation text previews. If maxLen is 0 or negative, returns s unchanged.
func Preview(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
