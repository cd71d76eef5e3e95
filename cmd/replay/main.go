package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	persistlog "blockevo.ai/internal/persistence/log"
	"blockevo.ai/internal/sim/evolve"
	"blockevo.ai/internal/sink"
)

func main() {
	var (
		logDir  = flag.String("log", "", "generation log dir containing generations-*.jsonl.zst")
		dataDir = flag.String("data", "./data", "runtime data directory (with -run)")
		runID   = flag.String("run", "", "run id to replay (resolved under -data)")
	)
	flag.Parse()

	dir := *logDir
	if dir == "" && *runID != "" {
		dir = persistlog.Dir(*dataDir, *runID)
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "missing -log or -run")
		os.Exit(2)
	}

	run, err := persistlog.ReadRun(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read log:", err)
		os.Exit(1)
	}
	h, err := persistlog.ReplayConfig(run)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("run %s seed=%d generations=%d complete=%v sink=%s\n",
		h.RunID, h.Seed, len(run.Generations), run.End != nil, h.Config.Sink.Kind)

	box := h.Config.Box()
	v := persistlog.NewVerifier(run)
	r := &evolve.Runner{
		Config:    h.Config,
		Sink:      sink.NewMemory(&box),
		RunID:     h.RunID,
		Recorders: []evolve.Recorder{v},
	}
	if _, err := r.Run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d generations\n", v.Checked())
}
