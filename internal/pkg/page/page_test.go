package page

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Defaults(t *testing.T) {
	r := Normalize(0, 0, 20, 100)
	assert.Equal(t, Request{Page: 1, Limit: 20}, r)
}

func TestNormalize_CapsLimit(t *testing.T) {
	r := Normalize(3, 500, 20, 100)
	assert.Equal(t, Request{Page: 3, Limit: 100}, r)
}

func TestSlice_MiddlePage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	out, res := Slice(items, Request{Page: 2, Limit: 3})
	assert.Equal(t, []int{4, 5, 6}, out)
	assert.Equal(t, Result{Count: 3, Total: 7, Pages: 3, CurrentPage: 2}, res)
}

func TestSlice_LastPartialPage(t *testing.T) {
	out, res := Slice([]int{1, 2, 3, 4, 5, 6, 7}, Request{Page: 3, Limit: 3})
	assert.Equal(t, []int{7}, out)
	assert.Equal(t, 1, res.Count)
}

func TestSlice_PastTheEnd(t *testing.T) {
	out, res := Slice([]string{"a"}, Request{Page: 5, Limit: 10})
	assert.Empty(t, out)
	assert.NotNil(t, out)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 1, res.Pages)
}

func TestSlice_HugePageDoesNotOverflow(t *testing.T) {
	req := Normalize(math.MaxInt, 10, 10, 100)
	out, res := Slice([]int{1, 2, 3}, req)
	assert.Empty(t, out)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, math.MaxInt, res.CurrentPage)
}

func TestSlice_ZeroValueRequest(t *testing.T) {
	out, res := Slice([]int{1, 2, 3}, Request{})
	assert.Empty(t, out)
	assert.Equal(t, 0, res.Pages)
}

func TestSlice_HugeLimitWithoutCap(t *testing.T) {
	out, res := Slice([]int{1, 2, 3}, Normalize(1, math.MaxInt, 10, 0))
	assert.Equal(t, []int{1, 2, 3}, out)
	assert.Equal(t, 1, res.Pages)
}
