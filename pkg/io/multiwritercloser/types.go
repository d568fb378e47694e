package multiwritercloser

import (
	"io"
)

var _ io.Writer = (*MultiWriterCloser)(nil)
var _ io.Closer = (*MultiWriterCloser)(nil)

// MultiWriterCloser fans writes out to every outlet and closes them
// together. Unlike io.MultiWriter, a failing outlet does not starve the
// outlets after it.
type MultiWriterCloser struct {
	ws []io.Writer
	cs []io.Closer
}

// nopCloser keeps shared streams such as os.Stdout open when the
// MultiWriterCloser is closed.
type nopCloser struct {
	io.Writer
}
