package embedding

import "strings"

// Tokenizer produces the three BERT-style model inputs: input_ids,
// attention_mask, and token_type_ids.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// bert special token IDs.
const (
	clsTokenID = 101
	sepTokenID = 102
)

// WordTokenizer is a whitespace tokenizer with hash-derived token IDs.
// It is a stand-in for a full WordPiece vocabulary: adequate for the short
// keyword and name strings this system embeds, and dependency-free.
type WordTokenizer struct{}

// Tokenize lowercases, splits on whitespace, and emits padded token IDs.
func (t *WordTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(hashWord(word) % 30000)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepTokenID
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// hashWord returns a stable non-negative hash for a token.
func hashWord(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
