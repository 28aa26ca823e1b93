//go:build windows

package ops

import (
	"os"

	"github.com/hpungsan/tabspace/internal/errors"
)

// createNoFollow creates a backup file. Windows has no O_NOFOLLOW;
// ValidatePath already refused symlinks.
func createNoFollow(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
}

// openNoFollow opens a backup file for reading.
func openNoFollow(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewFileNotFound(path)
	}
	return f, err
}
