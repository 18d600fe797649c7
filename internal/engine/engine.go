// Package engine is a dictionary-free reference implementation of the
// readmaker_core analysis engine. It backs the c-shared build in
// cmd/readmaker_core and the in-memory test engine; real deployments ship the
// dictionary based engine instead.
package engine

import (
	"encoding/json"
)

// BridgeMessage is the payload of js_test_bridge.
const BridgeMessage = "ReadMaker Rust Bridge - OK"

// Split is the fallback segmentation used when no dictionary is available:
// every character becomes its own token.
func Split(text string) []string {
	words := make([]string, 0, len(text))
	for _, r := range text {
		words = append(words, string(r))
	}
	return words
}

// TokensJSON analyzes text and encodes the result as a JSON array of
// surface strings. Encoding failures degrade to "[]".
func TokensJSON(text string) string {
	bz, err := json.Marshal(Split(text))
	if err != nil {
		return "[]"
	}
	return string(bz)
}
