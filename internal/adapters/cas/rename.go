package cas

import (
	"io/fs"
	"os"
)

// publishFallback is the plain rename path. Entries are content addressed, so
// losing a race only replaces identical bytes.
func publishFallback(tmp, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fs.ErrExist
	}
	return os.Rename(tmp, dst)
}
