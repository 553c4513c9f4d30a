package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, CodeNotFound.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, CodeValidation.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, CodeMalformedRequest.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, CodeInternal.HTTPStatus())
}

func TestIsMatchesByCode(t *testing.T) {
	err := NotFoundf("book %d not found", 7)
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrValidation))

	wrapped := fmt.Errorf("lookup: %w", err)
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.Equal(t, http.StatusNotFound, StatusOf(wrapped))
}

func TestMalformedKeepsCause(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := Malformed(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "malformed request body: unexpected EOF", err.Error())
	assert.Equal(t, http.StatusInternalServerError, StatusOf(cause))
}
