package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"blockevo.ai/internal/config"
	"blockevo.ai/internal/persistence/indexdb"
	persistlog "blockevo.ai/internal/persistence/log"
	"blockevo.ai/internal/sim/evolve"
	"blockevo.ai/internal/sink"
	"blockevo.ai/internal/transport/ws"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to run config yaml (defaults are embedded)")
		seed        = flag.Int64("seed", 0, "override seed")
		generations = flag.Int("generations", 0, "override number of generations")
		sinkKind    = flag.String("sink", "", "override sink kind (memory|ws)")
		url         = flag.String("url", "", "override world ws url")
		dataDir     = flag.String("data", "", "override runtime data directory")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite run index")
		segmentSize = flag.Int("log_segment", persistlog.DefaultSegmentSize, "generations per log file")
		printConfig = flag.Bool("print_config", false, "print the effective config and exit")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[evolve] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *seed
		case "generations":
			cfg.Generations = *generations
		case "sink":
			cfg.Sink.Kind = *sinkKind
		case "url":
			cfg.Sink.URL = *url
		case "data":
			cfg.DataDir = *dataDir
		case "disable_db":
			cfg.DisableDB = *disableDB
		}
	})
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}
	if *printConfig {
		b, err := cfg.YAML()
		if err != nil {
			logger.Fatalf("render config: %v", err)
		}
		_, _ = os.Stdout.Write(b)
		return
	}

	ctx, cancel := signalContext()
	err = run(ctx, cfg, uuid.NewString(), *segmentSize, logger)
	cancel()
	if err != nil {
		logger.Printf("%v", err)
		os.Exit(1)
	}
}

// run owns every resource a run opens, so they are closed before main exits
// with a failure status.
func run(ctx context.Context, cfg config.Config, runID string, segmentSize int, logger *log.Logger) error {
	var world sink.WorldSink
	switch cfg.Sink.Kind {
	case config.SinkWebsocket:
		c, err := ws.Dial(ctx, ws.Options{
			URL:           cfg.Sink.URL,
			ClientName:    "evolve",
			RunID:         runID,
			RetryAttempts: cfg.Sink.RetryAttempts,
			RetryBackoff:  cfg.Sink.RetryBackoff(),
			Timeout:       cfg.Sink.Timeout(),
		}, logger)
		if err != nil {
			return fmt.Errorf("dial world: %w", err)
		}
		defer c.Close()
		world = c
	default:
		box := cfg.Box()
		world = sink.NewMemory(&box)
	}

	runDir := persistlog.Dir(cfg.DataDir, runID)
	genLog := persistlog.NewGenerationLogger(runDir, segmentSize)
	defer genLog.Close()
	recorders := []evolve.Recorder{genLog}

	if !cfg.DisableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(cfg.DataDir, "index", "runs.sqlite"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer func() {
			if st := idx.Stats(); st.DropGenerationTotal > 0 || st.WriteErrorTotal > 0 {
				logger.Printf("index: dropped=%d write_errors=%d", st.DropGenerationTotal, st.WriteErrorTotal)
			}
			_ = idx.Close()
		}()
		recorders = append(recorders, idx)
	}

	runner := &evolve.Runner{
		Config:    cfg,
		Sink:      world,
		Log:       logger,
		RunID:     runID,
		Recorders: recorders,
	}
	sum, err := runner.Run(ctx)
	if err != nil {
		if sum.Canceled {
			logger.Printf("run %s canceled after %d generations (log: %s)", runID, sum.Generations, runDir)
			return nil
		}
		return fmt.Errorf("run %s failed: %w", runID, err)
	}
	logger.Printf("log: %s", runDir)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
