package installer

// SetSyncDir replaces the directory sync used during activation until the
// returned function is called.
func SetSyncDir(fn func(string) error) (restore func()) {
	prev := syncDir
	syncDir = fn
	return func() { syncDir = prev }
}
