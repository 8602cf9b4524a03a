package tokenize

import (
	"strings"
	"sync"
	"unicode"
)

// SegmentTokenizer splits text into segments: a run of letters, a run of
// digits, or a single symbol rune, each carrying its preceding whitespace.
// This approximates the subword granularity of the embedding model's own
// tokenizer far more closely than whitespace words do (punctuation and numbers
// become separate tokens), while remaining lossless: concatenating the decoded
// segments reproduces the input byte-for-byte.
//
// Token IDs are assigned from an instance-local dictionary in first-seen
// order. IDs are only meaningful to the instance that produced them; chunk
// text is always decoded immediately after windowing, never persisted as IDs.
type SegmentTokenizer struct {
	mu     sync.Mutex
	ids    map[string]int
	pieces []string
}

// NewSegmentTokenizer returns an empty tokenizer.
func NewSegmentTokenizer() *SegmentTokenizer {
	return &SegmentTokenizer{ids: make(map[string]int)}
}

// Encode splits text into segments and returns their token IDs in order.
// Empty text yields an empty sequence.
func (t *SegmentTokenizer) Encode(text string) []int {
	segments := segment(text)
	if len(segments) == 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int, len(segments))
	for i, s := range segments {
		id, ok := t.ids[s]
		if !ok {
			id = len(t.pieces)
			t.ids[s] = id
			t.pieces = append(t.pieces, s)
		}
		out[i] = id
	}
	return out
}

// Decode concatenates the segments for ids. Unknown IDs decode to nothing.
func (t *SegmentTokenizer) Decode(ids []int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	for _, id := range ids {
		if id >= 0 && id < len(t.pieces) {
			b.WriteString(t.pieces[id])
		}
	}
	return b.String()
}

// segment splits text into letter runs, digit runs, and single symbol runes,
// each prefixed with the whitespace that preceded it. Trailing whitespace with
// no following segment becomes a final whitespace-only segment, so the
// concatenation of all segments is exactly the input.
func segment(text string) []string {
	var segments []string
	var pending strings.Builder // whitespace awaiting the next segment
	var current strings.Builder
	var currentClass int // 0 none, 1 letter, 2 digit

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
			currentClass = 0
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
			pending.WriteRune(r)
		case unicode.IsLetter(r):
			if currentClass != 1 {
				flush()
				current.WriteString(pending.String())
				pending.Reset()
				currentClass = 1
			}
			current.WriteRune(r)
		case unicode.IsDigit(r):
			if currentClass != 2 {
				flush()
				current.WriteString(pending.String())
				pending.Reset()
				currentClass = 2
			}
			current.WriteRune(r)
		default:
			// Symbols and punctuation are one token each.
			flush()
			current.WriteString(pending.String())
			pending.Reset()
			current.WriteRune(r)
			segments = append(segments, current.String())
			current.Reset()
		}
	}
	flush()
	if pending.Len() > 0 {
		segments = append(segments, pending.String())
	}
	return segments
}
