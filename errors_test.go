package bwfs_test

import (
	"errors"
	"syscall"
	"testing"

	"github.com/blackwhitefs/bwfs"
	"github.com/stretchr/testify/assert"
)

func TestDriverErrorWithMessage(t *testing.T) {
	newErr := bwfs.ErrExists.WithMessage("asdfqwerty")
	assert.Equal(t, "file exists: asdfqwerty", newErr.Error())
	assert.ErrorIs(t, newErr, bwfs.ErrExists)
}

func TestDriverErrorWrap(t *testing.T) {
	originalErr := errors.New("original error")
	newErr := bwfs.ErrFull.Wrap(originalErr)

	assert.Equal(t, "no space left on device: original error", newErr.Error())
	assert.ErrorIs(t, newErr, originalErr)
	assert.ErrorIs(t, newErr, bwfs.ErrFull)
}

func TestDriverErrorErrno(t *testing.T) {
	assert.Equal(t, syscall.EIO, bwfs.ErrIO.Errno())
	assert.Equal(t, bwfs.ErrNotFound.Errno(), bwfs.ErrNotFound.WithMessage("x").Errno())
}
