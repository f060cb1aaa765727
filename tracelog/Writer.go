// Package tracelog writes per-step traces of a run as zstd compressed
// JSON lines, one record per TimeStep
package tracelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Extension is the file extension of trace files
const Extension = ".jsonl.zst"

// Record is one traced TimeStep
type Record struct {
	RunID       string    `json:"run"`
	AgentID     string    `json:"agent,omitempty"`
	Episode     int       `json:"episode"`
	Step        int       `json:"step"`
	Type        string    `json:"type"`
	Action      *int      `json:"action,omitempty"`
	Reward      float64   `json:"reward"`
	Discount    float64   `json:"discount"`
	End         string    `json:"end,omitempty"`
	Observation []float64 `json:"obs"`
}

// Writer writes JSON lines to a zstd compressed file
type Writer struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewWriter creates the trace file at path, creating parent
// directories as needed
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Writer{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Write appends v as a single JSON line
func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return fmt.Errorf("write %s: writer is closed", w.path)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes buffered lines and closes the file
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return nil
	}

	errFlush := w.w.Flush()
	errEnc := w.enc.Close()
	errFile := w.f.Close()
	w.w, w.enc, w.f = nil, nil, nil

	switch {
	case errFlush != nil:
		return errFlush
	case errEnc != nil:
		return errEnc
	default:
		return errFile
	}
}

// Path returns the path of the trace file
func (w *Writer) Path() string {
	return w.path
}
