package apperrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHierarchy(t *testing.T) {
	base := New("base error").SetStatusCode(http.StatusInternalServerError)
	child := base.New("child error")
	grandchild := child.New("grandchild error")

	assert.Equal(t, "child error", child.Error())
	assert.Equal(t, http.StatusInternalServerError, child.StatusCode())
	assert.True(t, errors.Is(child, base))
	assert.True(t, errors.Is(grandchild, base))
	assert.True(t, errors.Is(grandchild, child))
	assert.False(t, errors.Is(base, child))
}

func TestMsgDoesNotMutateSentinel(t *testing.T) {
	sentinel := New("not found").SetStatusCode(http.StatusNotFound)
	derived := sentinel.Msg("scope not found")

	assert.Equal(t, "not found", sentinel.Error())
	assert.Equal(t, "scope not found", derived.Error())
	assert.Equal(t, http.StatusNotFound, derived.StatusCode())
	assert.True(t, errors.Is(derived, sentinel))
}

func TestStatusCodeOverride(t *testing.T) {
	base := New("conflict").SetStatusCode(http.StatusConflict)
	child := base.New("serial conflict").SetStatusCode(http.StatusPreconditionFailed)

	assert.Equal(t, http.StatusPreconditionFailed, child.StatusCode())
	assert.Equal(t, http.StatusConflict, base.StatusCode())
}

func TestErrWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	base := New("persistence failure").SetStatusCode(http.StatusInternalServerError)
	wrapped := base.Err(cause)

	assert.True(t, errors.Is(wrapped, base))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, "persistence failure", wrapped.Error())
}

func TestErrorAllExpandsWrapped(t *testing.T) {
	cause1 := errors.New("first")
	cause2 := errors.New("second")
	err := New("top").SetExpandError(true).MsgErr("operation failed", cause1, cause2)

	assert.Equal(t, "operation failed: first;second", err.ErrorAll())
	assert.Equal(t, "operation failed", err.Error())
}

func TestMsgErrSetsMessageAndCause(t *testing.T) {
	cause := errors.New("bad payload")
	base := New("invalid input")
	err := base.MsgErr("manifest content rejected", cause)

	assert.Equal(t, "manifest content rejected", err.Error())
	assert.True(t, errors.Is(err, base))
	assert.True(t, errors.Is(err, cause))
}
