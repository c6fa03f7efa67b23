package statemanager

import (
	"net/http"

	"github.com/tansive/stately/internal/common/apperrors"
)

var (
	ErrStateManager   apperrors.Error = apperrors.New("state error").SetStatusCode(http.StatusInternalServerError)
	ErrInvalidRequest apperrors.Error = ErrStateManager.New("invalid request").SetStatusCode(http.StatusBadRequest)
	ErrInvalidScope   apperrors.Error = ErrInvalidRequest.New("invalid scope id")
	// ErrCorruption means the stored checksum does not match the content.
	// Not retryable; the manifest needs manual recovery from a backup.
	ErrCorruption apperrors.Error = ErrStateManager.New("manifest corrupted").SetStatusCode(http.StatusInternalServerError)
	// ErrNotJSON is returned for path queries against non-JSON content.
	ErrNotJSON apperrors.Error = ErrInvalidRequest.New("manifest content is not JSON")
	// ErrPathNotFound is returned when a path query matches nothing.
	ErrPathNotFound apperrors.Error = ErrStateManager.New("no value at path").SetStatusCode(http.StatusNotFound)
)
