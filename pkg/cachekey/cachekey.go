// Package cachekey derives deterministic cache keys for generation requests.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// SampleLength is the number of runes of free text that take part in a key.
// Requests whose long text fields share this prefix map to the same entry.
// Changing it invalidates every stored key.
const SampleLength = 500

// Key returns the lowercase hex SHA-256 of the canonical form of
// {"operation": operation, "params": params}.
//
// params is normalized through a JSON round trip so that object keys are
// emitted in sorted order no matter how the caller built them.
func Key(operation string, params any) string {
	return hashOf(map[string]any{
		"operation": operation,
		"params":    canonical(params),
	})
}

// RequestHash hashes the full request payload without truncation. It is
// stored alongside an entry so prefix collisions can be told apart.
func RequestHash(payload any) string {
	return hashOf(canonical(payload))
}

// Sample trims text and keeps at most SampleLength runes.
func Sample(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= SampleLength {
		return text
	}
	runes := []rune(text)
	if len(runes) <= SampleLength {
		return text
	}
	return string(runes[:SampleLength])
}

func canonical(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return string(data)
	}
	return out
}

func hashOf(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", v))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
