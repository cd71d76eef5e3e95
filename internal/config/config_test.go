package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blockevo.ai/internal/sim/voxel"
)

func TestDefaults_BoxCenteredRoot(t *testing.T) {
	c := Defaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if c.Resources.Richness != 10 || c.Resources.SurvivalThreshold != 3 || c.Generations != 100 {
		t.Fatalf("unexpected defaults: %+v", c.Resources)
	}
	if c.Rates.Reproduction != 0.7 || c.Rates.Recombination != 0.2 || c.Rates.Mutation != 0.3 {
		t.Fatalf("unexpected rates: %+v", c.Rates)
	}
	if got := c.Box().Volume(); got != 100*10*100 {
		t.Fatalf("box volume=%d", got)
	}
	if got := c.RootCoord(); got != (voxel.Vec3i{X: 50, Y: 1, Z: 50}) {
		t.Fatalf("root=%v", got)
	}

	c.World.Root = &[3]int{49, 1, 49}
	if err := c.Validate(); err != nil {
		t.Fatalf("explicit root: %v", err)
	}
	if got := c.RootCoord(); got != (voxel.Vec3i{X: 49, Y: 1, Z: 49}) {
		t.Fatalf("explicit root=%v", got)
	}
}

func TestLoad_OverlaysFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "run.yaml")
	body := `
seed: 9
world:
  start: [10, 5, 10]
  end: [0, 0, 0]
  vertical_band: [0, 0]
  root: [3, 2, 3]
rates:
  mutation: 0.9
index:
  kind: GRID
`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Seed != 9 || c.Rates.Mutation != 0.9 || c.Rates.Reproduction != 0.7 {
		t.Fatalf("overlay lost values: seed=%d rates=%+v", c.Seed, c.Rates)
	}
	if c.World.Start != [3]int{0, 0, 0} || c.World.End != [3]int{10, 5, 10} {
		t.Fatalf("box not normalized: %v..%v", c.World.Start, c.World.End)
	}
	if c.World.VerticalBand != [2]int{0, 5} {
		t.Fatalf("band=%v want box Y range", c.World.VerticalBand)
	}
	if c.Index.Kind != "grid" || c.Index.BucketSize != 8 {
		t.Fatalf("index=%+v", c.Index)
	}
	if c.RootCoord() != (voxel.Vec3i{X: 3, Y: 2, Z: 3}) {
		t.Fatalf("root=%v", c.RootCoord())
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"rate":  "rates: {reproduction: 1.5}",
		"band":  "world: {vertical_band: [0, 40]}",
		"root":  "world: {root: [500, 1, 1]}",
		"index": "index: {kind: octree}",
		"sink":  "sink: {kind: grpc}",
		"url":   "sink: {kind: ws, url: ''}",
		"huge":  "world: {start: [0, 0, 0], end: [4194304, 10, 10]}",
	}
	for name, body := range cases {
		if _, err := Parse([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		} else if !strings.HasPrefix(err.Error(), "config: ") {
			t.Fatalf("%s: unwrapped error %v", name, err)
		}
	}
}
