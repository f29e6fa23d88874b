package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeywordList is a list of keywords. Upstream sources are inconsistent:
// keyword fields arrive either as a JSON array or as a JSON string that
// itself contains an encoded array. Both forms normalize to a plain list
// here, at the boundary, so matching code never re-checks the encoding.
type KeywordList []string

// UnmarshalJSON accepts ["a","b"], "[\"a\",\"b\"]", null, and "".
func (k *KeywordList) UnmarshalJSON(data []byte) error {
	var direct []string
	if err := json.Unmarshal(data, &direct); err == nil {
		*k = direct
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("keywords: expected list or encoded string: %s", string(data))
	}
	if strings.TrimSpace(raw) == "" {
		*k = nil
		return nil
	}
	var inner []string
	if err := json.Unmarshal([]byte(raw), &inner); err != nil {
		return fmt.Errorf("keywords: malformed encoded list: %w", err)
	}
	*k = inner
	return nil
}

// ParseKeywordList parses a raw stored value (possibly empty, a JSON array,
// or a doubly-encoded JSON string) into a KeywordList.
func ParseKeywordList(raw string) (KeywordList, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var k KeywordList
	if err := k.UnmarshalJSON([]byte(raw)); err != nil {
		return nil, err
	}
	return k, nil
}

// Vector is an embedding vector as stored (JSON array of floats).
type Vector []float32

// ParseVector parses a JSON-encoded embedding. Empty input yields nil.
func ParseVector(raw string) (Vector, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var v Vector
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("embedding: malformed vector: %w", err)
	}
	return v, nil
}

// Encode returns the JSON encoding of the vector for storage.
func (v Vector) Encode() (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
