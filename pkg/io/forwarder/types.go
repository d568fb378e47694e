package forwarder

// Forwarder drains the non-blocking read end of a child's output pipe into
// an io.Writer. A Forwarder is closed permanently once its pipe reports
// end-of-stream or an unrecoverable read error.
type Forwarder struct {
	fd   int
	name string
	buf  []byte
}

// WriteError is a failed write of pipe data into the destination writer.
type WriteError struct {
	Stream string
	Err    error
}

func (e *WriteError) Error() string {
	return "forward " + e.Stream + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
