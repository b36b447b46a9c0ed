package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumericCode_Length(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewNumericCode(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "non-digit in %q", code)
		}
	}
}

func TestNewNumericCode_InvalidLength(t *testing.T) {
	_, err := NewNumericCode(0)
	assert.Error(t, err)
	_, err = NewNumericCode(19)
	assert.Error(t, err)
}
