package embedding

import "strings"

const (
	clsTokenID int64 = 101
	sepTokenID int64 = 102
)

// modelInputs builds BERT-style model inputs (input_ids, attention_mask,
// token_type_ids) for a single text, padded or truncated to maxTokens.
// Token IDs come from a deterministic word hash rather than a vocabulary
// file; the surrounding [CLS]/[SEP] framing matches what the exported ONNX
// models expect.
func modelInputs(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(hashString(word) % 30000)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepTokenID
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}
