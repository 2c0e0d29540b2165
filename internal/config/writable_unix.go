//go:build !windows

package config

import (
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

func writable(dir string) error {
	if err := unix.Access(dir, unix.W_OK); err != nil {
		if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EROFS) || errors.Is(err, unix.EPERM) {
			return fs.ErrPermission
		}
		return fmt.Errorf("access check: %w", err)
	}
	return nil
}
