package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "<empty>", MaskToken(""))
	assert.Equal(t, "[token:6 chars]", MaskToken("secret"))
	assert.NotContains(t, MaskToken("abcdef123"), "abc")
}
