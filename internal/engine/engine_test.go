package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"今", "日", "は", "晴", "れ", "で", "す"}, Split("今日は晴れです"))
	assert.Equal(t, []string{"a", " ", "b"}, Split("a b"))
	assert.Empty(t, Split(""))
}

func TestTokensJSON(t *testing.T) {
	assert.Equal(t, `["猫","。"]`, TokensJSON("猫。"))
	assert.Equal(t, `[]`, TokensJSON(""))
}
