package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Token is one morpheme as reported by the analysis engine. The engine owns
// the schema; only Surface is guaranteed to be present.
type Token struct {
	Surface      string   `json:"surface"`
	Reading      string   `json:"reading,omitempty"`
	PartOfSpeech string   `json:"part_of_speech,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// UnmarshalJSON also accepts the short "pos" key some engine builds emit.
func (t *Token) UnmarshalJSON(data []byte) error {
	type plain Token
	var aux struct {
		plain
		Pos string `json:"pos"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Token(aux.plain)
	if t.PartOfSpeech == "" {
		t.PartOfSpeech = aux.Pos
	}
	return nil
}

// DecodeTokens parses an analysis payload. Engines built without a
// dictionary emit a plain array of surface strings, dictionary builds emit
// token objects; both decode to the same slice.
func DecodeTokens(payload string) ([]Token, error) {
	data := bytes.TrimSpace([]byte(payload))
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot decode analysis payload, expected JSON array: %w", err)
	}
	tokens := make([]Token, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var surface string
			if err := json.Unmarshal(item, &surface); err != nil {
				return nil, fmt.Errorf("token %d: %w", i, err)
			}
			tokens = append(tokens, Token{Surface: surface})
			continue
		}
		var tok Token
		if err := json.Unmarshal(item, &tok); err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// Surfaces returns the surface forms in order.
func Surfaces(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Surface
	}
	return out
}
