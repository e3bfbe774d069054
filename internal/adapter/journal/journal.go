// Package journal records applied transfers as hourly rotated, zstd
// compressed JSONL files named <prefix>-YYYY-MM-DD-HH.jsonl.zst.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/samber/oops"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

const (
	DefaultPrefix = "transfers"
	hourLayout    = "2006-01-02-15"
)

type Journal struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func New(baseDir string) *Journal {
	return &Journal{
		baseDir: baseDir,
		prefix:  DefaultPrefix,
		now:     time.Now,
	}
}

func (j *Journal) Dir() string { return j.baseDir }

// Write appends one event. Each call is flushed through the encoder so a
// crash loses at most the event being written.
func (j *Journal) Write(ev domain.TransferEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	hour := j.now().UTC().Format(hourLayout)
	if hour != j.curHour {
		if err := j.rotateLocked(hour); err != nil {
			return oops.In("journal").With("hour", hour).Wrapf(err, "rotate")
		}
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := j.w.Flush(); err != nil {
		return err
	}
	return j.enc.Flush()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

func (j *Journal) rotateLocked(hour string) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	path := j.pathForHour(hour)
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
	j.f = f
	j.enc = enc
	j.w = bufio.NewWriterSize(enc, 64*1024)
	j.curHour = hour
	return nil
}

func (j *Journal) closeLocked() error {
	var err error
	if j.w != nil {
		_ = j.w.Flush()
	}
	if j.enc != nil {
		err = j.enc.Close()
		j.enc = nil
	}
	if j.f != nil {
		_ = j.f.Close()
		j.f = nil
	}
	j.w = nil
	j.curHour = ""
	return err
}

func (j *Journal) pathForHour(hour string) string {
	return filepath.Join(j.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", j.prefix, hour))
}

// ReadFile decodes every event in one journal file. Files appended to after
// a restart hold several zstd frames; the decoder reads them in sequence.
func ReadFile(path string) ([]domain.TransferEvent, error) {
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

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var events []domain.TransferEvent
	for line := 1; sc.Scan(); line++ {
		var ev domain.TransferEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return events, oops.In("journal").With("path", path, "line", line).Wrapf(err, "decode event")
		}
		events = append(events, ev)
	}
	return events, sc.Err()
}

// ReadDir returns the events of every journal file in dir, oldest hour first.
func ReadDir(dir string) ([]domain.TransferEvent, error) {
	paths, err := filepath.Glob(filepath.Join(dir, DefaultPrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var events []domain.TransferEvent
	for _, p := range paths {
		evs, err := ReadFile(p)
		if err != nil {
			return events, err
		}
		events = append(events, evs...)
	}
	return events, nil
}
