package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_StrictlyIncreasing(t *testing.T) {
	prev := New()
	for i := 0; i < 1000; i++ {
		next := New()
		assert.Less(t, prev, next)
		prev = next
	}
}
