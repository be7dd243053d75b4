package ports

//go:generate mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks

// Fingerprinter summarizes a directory tree in a short, stable hash.
type Fingerprinter interface {
	Fingerprint(dir string) (string, error)
}

// Remover deletes directory trees without recursion.
type Remover interface {
	// RemoveAll deletes path and everything below it. Trees nested deeper
	// than maxDepth are refused. A missing path is not an error.
	RemoveAll(path string, maxDepth int) error
}
