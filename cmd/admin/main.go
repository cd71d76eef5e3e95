package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	persistlog "blockevo.ai/internal/persistence/log"
	"blockevo.ai/internal/sim/voxel"
	"blockevo.ai/internal/transport/ws"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "log":
			logCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "cube":
			cubeCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "runs"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	runID := fs.String("run", "", "run id (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*runID) == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}
	run, err := persistlog.ReadRun(persistlog.Dir(*dataDir, *runID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read log:", err)
		os.Exit(1)
	}
	fmt.Printf("run %s seed=%d root=%v genotype=%s\n", run.Header.RunID, run.Header.Seed, run.Header.Root, run.Header.Genotype)
	for _, g := range run.Generations {
		fmt.Printf("gen=%d size=%d offspring=%d vacated=%d resources=%d digest=%s\n",
			g.Generation, g.Size, g.Offspring, g.Vacated, g.ResourceTotal, g.Digest)
	}
	if run.End == nil {
		fmt.Println("(run did not finish)")
		return
	}
	printJSON(run.End)
}

// cubeCmd reads a box from a running world and prints a histogram of kinds.
func cubeCmd(args []string) {
	fs := flag.NewFlagSet("cube", flag.ExitOnError)
	url := fs.String("url", "ws://127.0.0.1:5001/v1/world", "world ws url")
	aabb := fs.String("aabb", "", "box: x1,y1,z1:x2,y2,z2 (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*aabb) == "" {
		fmt.Fprintln(os.Stderr, "missing -aabb")
		os.Exit(2)
	}
	min, max, err := parseAABB(*aabb)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad -aabb:", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c, err := ws.Dial(ctx, ws.Options{URL: *url, ClientName: "admin", Timeout: 10 * time.Second}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(1)
	}
	defer c.Close()

	box := voxel.NewBox(voxel.FromArray(min), voxel.FromArray(max))
	cells, err := c.Snapshot(ctx, box)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(1)
	}
	h := histogram(cells, box.Volume())
	for _, k := range sortedKeys(h) {
		fmt.Printf("%-14s %d\n", k, h[k])
	}
}

func histogram(cells map[voxel.Vec3i]voxel.Kind, volume int) map[string]int {
	out := map[string]int{voxel.Air.String(): volume - len(cells)}
	for _, k := range cells {
		out[k.String()]++
	}
	return out
}

func parseAABB(s string) (min, max [3]int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return min, max, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return min, max, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return min, max, err
	}
	box := voxel.NewBox(voxel.FromArray(a), voxel.FromArray(b))
	return box.Min.ToArray(), box.Max.ToArray(), nil
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "json:", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
