//go:build windows

package config

import (
	"os"
)

// writable probes with a temporary file; ACLs make mode bits meaningless here.
func writable(dir string) error {
	f, err := os.CreateTemp(dir, ".mirrorwatch-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
