package commands

import (
	"fmt"
	"os"
	"path/filepath"

	lib "github.com/uhppoted/uhppoted-lib/config"
	"github.com/uhppoted/uhppoted-lib/lockfile"
)

// acquire locks the run lockfile, returning the function that releases it.
// An empty file disables locking.
func acquire(file string) (func(), error) {
	if file == "" {
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0770); err != nil {
		return nil, fmt.Errorf("unable to create lockfile directory (%w)", err)
	}

	lock, err := lockfile.MakeLockFile(lib.Lockfile{
		File:   file,
		Remove: true,
	})

	if err != nil {
		return nil, fmt.Errorf("unable to acquire lockfile %v - is another sync running? (%w)", file, err)
	}

	debugf("acquired lockfile %v", file)

	return func() {
		lock.Release()
	}, nil
}
