//go:build unix

package validation

import "golang.org/x/sys/unix"

func accessible(dir string) error {
	return unix.Access(dir, unix.R_OK|unix.X_OK)
}
