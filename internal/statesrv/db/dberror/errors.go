package dberror

import (
	"net/http"

	"github.com/tansive/stately/internal/common/apperrors"
)

var (
	ErrDatabase       apperrors.Error = apperrors.New("db error").SetStatusCode(http.StatusInternalServerError)
	ErrNotFound       apperrors.Error = ErrDatabase.New("not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidInput   apperrors.Error = ErrDatabase.New("invalid input").SetStatusCode(http.StatusBadRequest)
	ErrSerialConflict apperrors.Error = ErrDatabase.New("serial conflict").SetStatusCode(http.StatusConflict)
	ErrAlreadyLocked  apperrors.Error = ErrDatabase.New("scope already locked").SetStatusCode(http.StatusLocked)
	ErrLockConflict   apperrors.Error = ErrDatabase.New("lock held by another caller").SetStatusCode(http.StatusLocked)
	ErrLockMismatch   apperrors.Error = ErrDatabase.New("lock id does not match held lock").SetStatusCode(http.StatusConflict)
	// ErrCorruption means stored manifest bytes came back damaged. Not
	// retryable; the manifest needs manual recovery from a backup.
	ErrCorruption apperrors.Error = ErrDatabase.New("manifest corrupted").SetStatusCode(http.StatusInternalServerError)
)
