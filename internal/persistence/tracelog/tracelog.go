package tracelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"seascape.ai/internal/sim/sched"
)

// Writer appends JSONL records to hourly-rotated zstd files. Safe for
// concurrent use; write failures are swallowed by the trace-sink adapters so
// diagnostics can never stall the tick loop.
type Writer struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(baseDir, prefix string) *Writer {
	return &Writer{baseDir: baseDir, prefix: prefix}
}

// ActivationRecord is written once per event activation.
type ActivationRecord struct {
	Kind        string  `json:"kind"`
	SessionTime float64 `json:"session_time"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	RareTier    int     `json:"rare_tier,omitempty"`
	Duration    float64 `json:"duration"`
}

// arbitrationRecord wraps a scheduler trace with a record kind tag.
type arbitrationRecord struct {
	Kind string `json:"kind"`
	sched.ArbitrationTrace
}

// RecordArbitration makes Writer a sched.TraceSink.
func (w *Writer) RecordArbitration(tr sched.ArbitrationTrace) {
	_ = w.Write(arbitrationRecord{Kind: "arbitration", ArbitrationTrace: tr})
}

func (w *Writer) WriteActivation(rec ActivationRecord) error {
	rec.Kind = "activation"
	return w.Write(rec)
}

func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReadAll decodes every JSONL record from a single trace file.
func ReadAll(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []json.RawMessage
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		out = append(out, json.RawMessage(append([]byte(nil), line...)))
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}
