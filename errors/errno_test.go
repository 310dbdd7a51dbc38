package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/mountkit/dokanfs/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindWithMessage(t *testing.T) {
	newErr := errors.NotFound.WithMessage("asdfqwerty")
	assert.Equal(t, "no such file or directory: asdfqwerty", newErr.Error())
	assert.ErrorIs(t, newErr, errors.NotFound)
}

func TestKindWrap(t *testing.T) {
	originalErr := stderrors.New("original error")
	newErr := errors.AlreadyExists.Wrap(originalErr)
	assert.Equal(t, "file exists: original error", newErr.Error())
	assert.ErrorIs(t, newErr, originalErr)
}

func TestToErrnoTotality(t *testing.T) {
	kinds := []errors.Kind{
		errors.NotFound, errors.Invalid, errors.PermissionDenied,
		errors.Locked, errors.NotEmpty, errors.AlreadyExists,
		errors.NoSpace, errors.NetworkDown, errors.Unsupported,
	}
	for _, k := range kinds {
		eno := errors.ToErrno(k)
		assert.NotZero(t, eno, "kind %q did not map to any errno", k)
	}
	// Anything unrecognized maps to EFAULT, never zero.
	assert.Equal(t, errors.EFAULT, errors.ToErrno(errors.Kind("something else")))
}

func TestErrnoToNTStatusTable(t *testing.T) {
	cases := map[errors.Errno]errors.NTStatus{
		errors.EEXIST:    errors.StatusObjectNameCollision,
		errors.ENOTEMPTY: errors.StatusDirectoryNotEmpty,
		errors.ENOSYS:    errors.StatusNotSupported,
		errors.EACCES:    errors.StatusAccessDenied,
	}
	for eno, want := range cases {
		assert.Equal(t, want, errors.ErrnoToNTStatus(eno))
	}
	// Anything else passes through as its raw numeric value.
	assert.Equal(t, errors.NTStatus(errors.ENOENT), errors.ErrnoToNTStatus(errors.ENOENT))
}

func TestKindToNTStatusTotality(t *testing.T) {
	kinds := []errors.Kind{
		errors.NotFound, errors.Invalid, errors.PermissionDenied,
		errors.Locked, errors.NotEmpty, errors.AlreadyExists,
		errors.NoSpace, errors.NetworkDown, errors.Unsupported,
	}
	seen := map[errors.NTStatus]bool{}
	for _, k := range kinds {
		status := errors.KindToNTStatus(k)
		assert.NotZero(t, status)
		seen[status] = true
	}
	// ENOSYS always yields NOT_SUPPORTED (spec property 7).
	assert.Equal(t, errors.StatusNotSupported, errors.KindToNTStatus(errors.Unsupported))
}
