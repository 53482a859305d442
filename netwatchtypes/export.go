package netwatchtypes

import (
	"bufio"
	"encoding/json"
	"os"
	"runtime"
	"sync"

	gzip "github.com/klauspost/pgzip"
)

// DefaultCompressionBlockSize mirrors the teacher's writer.go block-size
// constant: pgzip only pays off once you feed it more than ~1MB per flush.
const DefaultCompressionBlockSize = 1 << 20

// DefaultExportBufferSize is the bufio.Writer size wrapping the gzip
// stream, matching the teacher's DefaultBufferSize convention.
const DefaultExportBufferSize = 256 * 1024

// ExportWriter archives a stream of JSON-encoded records (FlowRecord or
// Alert batches) to a parallel-gzip-compressed file, following the
// buffer->gzip->file pipeline in the teacher's Writer type.
type ExportWriter struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	gz      *gzip.Writer
	enc     *json.Encoder
	records int64
}

// NewExportWriter creates a compressed export file at path.
func NewExportWriter(path string) (*ExportWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := &ExportWriter{file: f}
	w.buf = bufio.NewWriterSize(f, DefaultExportBufferSize)
	w.gz = gzip.NewWriter(w.buf)

	// Match the teacher's concurrency tuning: block size times 2x GOMAXPROCS
	// worth of blocks, so compression scales with the host.
	_ = w.gz.SetConcurrency(DefaultCompressionBlockSize, runtime.GOMAXPROCS(0)*2)

	w.enc = json.NewEncoder(w.gz)
	return w, nil
}

// WriteRecord appends one JSON record to the archive.
func (w *ExportWriter) WriteRecord(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	w.records++
	return nil
}

// Records returns the number of records written so far.
func (w *ExportWriter) Records() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Close flushes and closes the gzip stream, buffer and underlying file, in
// that order, matching the teacher's CloseGzipWriters/FlushWriters/CloseFile
// sequencing.
func (w *ExportWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.gz.Flush(); err != nil {
		return err
	}
	if err := w.gz.Close(); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}
