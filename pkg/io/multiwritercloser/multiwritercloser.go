package multiwritercloser

import (
	"io"
)

func New(wcs ...io.WriteCloser) *MultiWriterCloser {
	mwc := &MultiWriterCloser{}
	for _, w := range wcs {
		mwc.ws = append(mwc.ws, io.Writer(w))
		mwc.cs = append(mwc.cs, io.Closer(w))
	}

	return mwc
}

// NopCloser wraps w so that closing it is a no-op.
func NopCloser(w io.Writer) io.WriteCloser {
	return nopCloser{w}
}

func (nopCloser) Close() error { return nil }

// Write writes p to every outlet and returns the first error seen.
func (mwc *MultiWriterCloser) Write(p []byte) (int, error) {
	var err error
	for _, w := range mwc.ws {
		n, writeErr := w.Write(p)
		if writeErr == nil && n != len(p) {
			writeErr = io.ErrShortWrite
		}

		if writeErr != nil && err == nil {
			err = writeErr
		}
	}

	if err != nil {
		return 0, err
	}

	return len(p), nil
}

func (mwc *MultiWriterCloser) Close() (err error) {
	for _, c := range mwc.cs {
		if closeErr := c.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}

	return err
}
