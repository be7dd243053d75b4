package fs

// SetSyncDir replaces the directory sync used by ReplaceFile until the
// returned function is called.
func SetSyncDir(fn func(string) error) (restore func()) {
	prev := syncDir
	syncDir = fn
	return func() { syncDir = prev }
}
