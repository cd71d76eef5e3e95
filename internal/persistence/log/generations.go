// Package log writes the per-run generation log: one compressed JSON line
// per event, in segments of consecutive generations.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"blockevo.ai/internal/sim/evolve"
)

const (
	KindRun        = "run"
	KindGeneration = "generation"
	KindEnd        = "end"

	prefix = "generations"
)

// DefaultSegmentSize is the number of generations per file.
const DefaultSegmentSize = 1000

// Entry is one line of the log. Exactly one payload is set, matching Kind.
type Entry struct {
	Kind       string                   `json:"kind"`
	Run        *evolve.RunRecord        `json:"run,omitempty"`
	Generation *evolve.GenerationRecord `json:"generation,omitempty"`
	End        *evolve.Summary          `json:"end,omitempty"`
}

// Dir is where a run's log lives under dataDir.
func Dir(dataDir, runID string) string {
	return filepath.Join(dataDir, "runs", runID, "generations")
}

// GenerationLogger records a run. It implements evolve.Recorder.
type GenerationLogger struct {
	w           *JSONLZstdWriter
	segmentSize int
	segment     string
}

var _ evolve.Recorder = (*GenerationLogger)(nil)

func NewGenerationLogger(dir string, segmentSize int) *GenerationLogger {
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}
	return &GenerationLogger{w: NewJSONLZstdWriter(dir, prefix), segmentSize: segmentSize, segment: segmentName(0)}
}

func segmentName(firstGeneration int) string {
	return fmt.Sprintf("%08d", firstGeneration)
}

func (l *GenerationLogger) BeginRun(r evolve.RunRecord) error {
	return l.w.Write(l.segment, Entry{Kind: KindRun, Run: &r})
}

func (l *GenerationLogger) WriteGeneration(g evolve.GenerationRecord) error {
	l.segment = segmentName(g.Generation / l.segmentSize * l.segmentSize)
	return l.w.Write(l.segment, Entry{Kind: KindGeneration, Generation: &g})
}

func (l *GenerationLogger) EndRun(s evolve.Summary) error {
	return l.w.Write(l.segment, Entry{Kind: KindEnd, End: &s})
}

func (l *GenerationLogger) Close() error { return l.w.Close() }

// Scan feeds every entry under dir to fn in write order.
func Scan(dir string, fn func(Entry) error) error {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	for _, name := range files {
		if err := scanFile(filepath.Join(dir, name), fn); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func scanFile(path string, fn func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	return nil
}

// Run is a log read back into memory.
type Run struct {
	Header      evolve.RunRecord
	Generations []evolve.GenerationRecord
	End         *evolve.Summary
}

// ReadRun loads a whole run. A missing end entry means the run was cut short.
func ReadRun(dir string) (*Run, error) {
	var out Run
	seenHeader := false
	err := Scan(dir, func(e Entry) error {
		switch e.Kind {
		case KindRun:
			if e.Run == nil {
				return errors.New("run entry without payload")
			}
			out.Header = *e.Run
			seenHeader = true
		case KindGeneration:
			if e.Generation == nil {
				return errors.New("generation entry without payload")
			}
			out.Generations = append(out.Generations, *e.Generation)
		case KindEnd:
			out.End = e.End
		default:
			return fmt.Errorf("unknown entry kind %q", e.Kind)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !seenHeader {
		return nil, fmt.Errorf("%s: no run header", dir)
	}
	return &out, nil
}
