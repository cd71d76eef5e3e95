package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blockevo.ai/internal/config"
	"blockevo.ai/internal/sim/voxel"
	"blockevo.ai/internal/sink"
	"blockevo.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:5001", "http listen address")
		configPath = flag.String("config", "", "run config yaml; its world box becomes the border when -bounded")
		bounded    = flag.Bool("bounded", false, "drop writes outside the configured world box")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[worldd] ", log.LstdFlags|log.Lmicroseconds)

	var bounds *voxel.Box
	if *bounded {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		b := cfg.Box()
		bounds = &b
		logger.Printf("world border %v..%v", b.Min, b.Max)
	}
	world := sink.NewMemory(bounds)

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/digest", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"digest":  world.Digest(),
			"flushes": world.Flushes(),
		})
	})
	mux.HandleFunc("/v1/world", ws.NewServer(world, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
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
