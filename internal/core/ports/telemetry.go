package ports

import "context"

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Telemetry records progress of long running work.
type Telemetry interface {
	// Record starts a vertex for a unit of work.
	Record(ctx context.Context, name string) (context.Context, Vertex)
	// Close flushes the recording session.
	Close() error
}

// Vertex is one unit of recorded work.
type Vertex interface {
	// Log writes a progress line for the vertex.
	Log(msg string)
	// Cached marks the vertex as satisfied without doing any work.
	Cached()
	// Complete finishes the vertex. A nil error means success.
	Complete(err error)
}
