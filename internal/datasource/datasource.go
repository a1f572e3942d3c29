// Package datasource defines how the pipeline obtains raw bytes. Raw dumps
// are supplied on the local filesystem by an external downloader/extractor;
// this package only opens them.
package datasource

import (
	"context"
	"io"
)

// Source opens a readable stream and reports its total size in bytes, which
// the decoder uses as the denominator of its progress fraction.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Size() (int64, error)
	Name() string
}
