//go:build !unix

package validation

import "os"

// Without access(2), opening the directory is the closest check.
func accessible(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	return f.Close()
}
