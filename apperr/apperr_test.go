package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("user not found")))
	assert.Equal(t, CodeConflict, CodeOf(fmt.Errorf("wrapped: %w", Conflict("dup"))))
	assert.Equal(t, CodeConflict, CodeOf(errors.Wrap(Conflict("dup"), "connection.service.RequestConnection")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestMessageOfHidesInternalCause(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"))
	assert.Equal(t, "internal error", MessageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "internal error", MessageOf(errors.New("raw")))
}

func TestErrorsIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("ctx: %w", NotFound("connection request not found"))
	assert.True(t, errors.Is(err, &Error{Code: CodeNotFound}))
	assert.False(t, errors.Is(err, &Error{Code: CodeConflict}))
	assert.True(t, errors.Is(errors.WithStack(err), NotFound("connection request not found")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(CodeUnauthenticated))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeInvalidOperation))
	assert.Equal(t, http.StatusConflict, HTTPStatus(CodeConflict))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Code("SOMETHING")))
}
