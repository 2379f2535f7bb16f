package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindTimeout, http.StatusGatewayTimeout},
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindAuth, http.StatusUnauthorized},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		err := New(c.kind, "test", "message", nil)
		assert.Equal(t, c.want, err.HTTPStatus(), string(c.kind))
	}
}

func TestErrorFormatting(t *testing.T) {
	err := NewInternal("wallethub", "failed to fetch page", stderrors.New("connection refused"))
	assert.Contains(t, err.Error(), "INTERNAL")
	assert.Contains(t, err.Error(), "wallethub")
	assert.Contains(t, err.Error(), "connection refused")

	bare := NewNotFound("ratehub", "no card found")
	assert.Contains(t, bare.Error(), "NOT_FOUND")
	assert.NotContains(t, bare.Error(), "<nil>")
}

func TestUnwrap(t *testing.T) {
	inner := stderrors.New("boom")
	err := NewInternal("src", "wrapped", inner)
	assert.ErrorIs(t, err, inner)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(NewTimeout("src", "https://example.com", nil)))
	assert.Equal(t, KindValidation, KindOf(NewValidation("src", "bad input")))

	// wrapped ScrapeErrors are still classified
	wrapped := fmt.Errorf("outer: %w", NewAuth("missing key"))
	assert.Equal(t, KindAuth, KindOf(wrapped))

	// plain errors default to internal
	assert.Equal(t, KindInternal, KindOf(stderrors.New("plain")))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, StatusOf(NewTimeout("src", "url", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(stderrors.New("plain")))
}
