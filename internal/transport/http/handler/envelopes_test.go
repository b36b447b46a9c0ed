package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freelance-hub/internal/domain"
	"github.com/freelance-hub/internal/pkg/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPError_MapsSentinels(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("x: %w", domain.ErrNotFound):     http.StatusNotFound,
		fmt.Errorf("x: %w", domain.ErrConflict):     http.StatusConflict,
		fmt.Errorf("x: %w", domain.ErrUnauthorized): http.StatusUnauthorized,
		fmt.Errorf("x: %w", domain.ErrForbidden):    http.StatusForbidden,
		fmt.Errorf("x: %w", domain.ErrBadRequest):   http.StatusBadRequest,
		errors.New("boom"):                          http.StatusInternalServerError,
	}
	for err, want := range cases {
		rr := httptest.NewRecorder()
		httpError(rr, err)
		assert.Equal(t, want, rr.Code, err.Error())
	}
}

func TestHTTPError_DetailOnlyOutsideProduction(t *testing.T) {
	defer Configure(Options{})

	Configure(Options{Production: false})
	rr := httptest.NewRecorder()
	httpError(rr, errors.New("dynamo unavailable"))
	var env MessageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "dynamo unavailable", env.Detail)

	Configure(Options{Production: true})
	rr = httptest.NewRecorder()
	httpError(rr, errors.New("dynamo unavailable"))
	env = MessageEnvelope{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Empty(t, env.Detail)
	assert.Equal(t, "internal server error", env.Error)
}

func TestParsePagination_DefaultsAndCap(t *testing.T) {
	defer Configure(Options{})
	Configure(Options{PageDefaultLimit: 10, PageMaxLimit: 50})

	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	assert.Equal(t, page.Request{Page: 1, Limit: 10}, parsePagination(r))

	r = httptest.NewRequest(http.MethodGet, "/x?page=3&limit=500", nil)
	assert.Equal(t, page.Request{Page: 3, Limit: 50}, parsePagination(r))
}

func TestWritePage_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	writePage(rr, "projects", []string{"a", "b"}, page.Result{Count: 2, Total: 5, Pages: 3, CurrentPage: 1})

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["count"])
	assert.EqualValues(t, 5, body["total"])
	assert.EqualValues(t, 3, body["pages"])
	assert.EqualValues(t, 1, body["currentPage"])
	assert.Len(t, body["projects"], 2)
}
