package log

import (
	"os"
	"path/filepath"
	"testing"

	"blockevo.ai/internal/config"
	"blockevo.ai/internal/sim/evolve"
	"blockevo.ai/internal/sim/population"
)

func TestGenerationLogger_RoundTripAcrossSegments(t *testing.T) {
	dir := Dir(t.TempDir(), "r1")
	l := NewGenerationLogger(dir, 4)

	if err := l.BeginRun(evolve.RunRecord{RunID: "r1", Seed: 42, Config: config.Defaults()}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	for g := 0; g <= 9; g++ {
		rec := evolve.GenerationRecord{RunID: "r1", Stats: population.Stats{Generation: g, Size: g + 1}, Digest: "d"}
		if err := l.WriteGeneration(rec); err != nil {
			t.Fatalf("WriteGeneration(%d): %v", g, err)
		}
	}
	if err := l.EndRun(evolve.Summary{RunID: "r1", Generations: 9, FinalSize: 10}); err != nil {
		t.Fatalf("EndRun: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, seg := range []string{"00000000", "00000004", "00000008"} {
		if _, err := os.Stat(filepath.Join(dir, "generations-"+seg+".jsonl.zst")); err != nil {
			t.Fatalf("segment %s: %v", seg, err)
		}
	}

	run, err := ReadRun(dir)
	if err != nil {
		t.Fatalf("ReadRun: %v", err)
	}
	if run.Header.Seed != 42 || run.Header.Config.Resources.Richness != 10 {
		t.Fatalf("header=%+v", run.Header)
	}
	if len(run.Generations) != 10 {
		t.Fatalf("generations=%d", len(run.Generations))
	}
	for i, g := range run.Generations {
		if g.Generation != i || g.Size != i+1 || g.Digest != "d" {
			t.Fatalf("generation %d read back as %+v", i, g)
		}
	}
	if run.End == nil || run.End.FinalSize != 10 {
		t.Fatalf("end=%+v", run.End)
	}
}

func TestReadRun_Truncated(t *testing.T) {
	dir := t.TempDir()
	l := NewGenerationLogger(dir, 0)
	_ = l.BeginRun(evolve.RunRecord{RunID: "r2"})
	_ = l.WriteGeneration(evolve.GenerationRecord{RunID: "r2"})
	_ = l.Close()

	run, err := ReadRun(dir)
	if err != nil {
		t.Fatalf("ReadRun: %v", err)
	}
	if run.End != nil || len(run.Generations) != 1 {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestReadRun_Errors(t *testing.T) {
	if _, err := ReadRun(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected missing dir error")
	}

	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, prefix)
	_ = w.Write("00000000", Entry{Kind: KindGeneration, Generation: &evolve.GenerationRecord{}})
	_ = w.Close()
	if _, err := ReadRun(dir); err == nil {
		t.Fatalf("expected missing header error")
	}
}
