package progrock

import (
	"fmt"

	"github.com/vito/progrock"
)

// Vertex implements ports.Vertex over *progrock.VertexRecorder.
type Vertex struct {
	vertex *progrock.VertexRecorder
}

// Log appends a line to the vertex output.
func (v *Vertex) Log(msg string) {
	_, _ = fmt.Fprintln(v.vertex.Stdout(), msg)
}

// Cached marks the vertex as satisfied without work.
func (v *Vertex) Cached() {
	v.vertex.Cached()
}

// Complete finishes the vertex with err, which may be nil.
func (v *Vertex) Complete(err error) {
	v.vertex.Done(err)
}
