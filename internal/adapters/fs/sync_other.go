//go:build !unix

package fs

// SyncDir is a no-op on platforms without directory fsync.
func SyncDir(string) error {
	return nil
}
