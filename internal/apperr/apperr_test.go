package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{InvalidArg("bad input"), http.StatusBadRequest},
		{Unauthorized("who are you"), http.StatusUnauthorized},
		{Forbidden("not yours"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{AlreadyExists("taken"), http.StatusConflict},
		{Internal("boom"), http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), "error: %v", tc.err)
	}
}

func TestHTTPStatusWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("user not found"))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInternal, "failed to save", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Contains(t, err.Error(), "failed to save")
	assert.Contains(t, err.Error(), "disk full")
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("nope")))
}
