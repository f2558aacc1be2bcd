package storeerr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"not exist", &fs.PathError{Op: "open", Path: "a.tom", Err: fs.ErrNotExist}, ErrNotFound},
		{"os not exist", os.ErrNotExist, ErrNotFound},
		{"permission", &fs.PathError{Op: "open", Path: "a.tom", Err: fs.ErrPermission}, ErrPermissionDenied},
		{"eperm", syscall.EPERM, ErrPermissionDenied},
		{"already classified", fmt.Errorf("wrap: %w", ErrQuotaExceeded), ErrQuotaExceeded},
		{"generic", errors.New("disk on fire"), ErrIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Classify(tt.in), tt.want)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, Classify(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fs.ErrNotExist))
	assert.True(t, IsNotFound(ErrNotFound))
	assert.False(t, IsNotFound(fs.ErrPermission))
	assert.False(t, IsNotFound(nil))
}
