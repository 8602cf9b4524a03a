// Package tokenize provides deterministic text tokenization for chunking.
package tokenize

// Tokenizer converts text into an ordered sequence of token IDs and decodes a
// slice of token IDs back into text. Encoding the same text always produces the
// same sequence, and decoding the full sequence reconstructs the text exactly,
// so overlapping token windows decode to exact source spans.
type Tokenizer interface {
	Encode(text string) []int
	Decode(ids []int) string
}
