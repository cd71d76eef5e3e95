package resources

import (
	"sync"
	"testing"

	"blockevo.ai/internal/sim/voxel"
)

func testBox() voxel.Box {
	return voxel.NewBox(voxel.Vec3i{X: 1, Y: 1, Z: 1}, voxel.Vec3i{X: 3, Y: 2, Z: 3})
}

func TestRequest_ExhaustsAfterRichness(t *testing.T) {
	c := voxel.Vec3i{X: 1, Y: 1, Z: 1}
	f := New(voxel.NewBox(c, c), 10)
	ok := 0
	for i := 0; i < 11; i++ {
		if f.Request(c, voxel.Stone) {
			ok++
		} else if i != 10 {
			t.Fatalf("request %d failed early", i+1)
		}
	}
	if ok != 10 {
		t.Fatalf("successes=%d want 10", ok)
	}
	if got := f.Get(c, voxel.Stone); got != 0 {
		t.Fatalf("counter=%d want 0", got)
	}
	if got := f.Get(c, voxel.Sand); got != 10 {
		t.Fatalf("other kinds touched: sand=%d", got)
	}
}

func TestRequest_DecrementsByOne(t *testing.T) {
	f := New(testBox(), 2)
	c := voxel.Vec3i{X: 2, Y: 2, Z: 3}
	for _, k := range voxel.Kinds() {
		for {
			before := f.Get(c, k)
			ok := f.Request(c, k)
			after := f.Get(c, k)
			if ok {
				if before <= 0 || after != before-1 {
					t.Fatalf("%s: success with before=%d after=%d", k, before, after)
				}
				continue
			}
			if before != 0 || after != 0 {
				t.Fatalf("%s: failure with before=%d after=%d", k, before, after)
			}
			break
		}
	}
}

func TestRequest_OutsideBox(t *testing.T) {
	f := New(testBox(), 5)
	out := voxel.Vec3i{X: 0, Y: 1, Z: 1}
	if f.Request(out, voxel.Sand) {
		t.Fatalf("request outside box succeeded")
	}
	if f.Level(out) != 0 {
		t.Fatalf("level outside box should be 0")
	}
}

func TestLevel_SumAndReset(t *testing.T) {
	f := New(testBox(), 4)
	c := voxel.Vec3i{X: 3, Y: 1, Z: 2}
	f.Request(c, voxel.Slime)
	f.Request(c, voxel.Piston)
	sum := 0
	for _, k := range voxel.Kinds() {
		sum += f.Get(c, k)
	}
	if f.Level(c) != sum || sum != 4*voxel.NumKinds-2 {
		t.Fatalf("level=%d sum=%d", f.Level(c), sum)
	}

	f.Reset(6)
	testBox().Each(func(v voxel.Vec3i) {
		if got := f.Level(v); got != 6*voxel.NumKinds {
			t.Fatalf("level(%v)=%d after reset", v, got)
		}
	})
	if f.Total() != int64(6*voxel.NumKinds*testBox().Volume()) {
		t.Fatalf("total=%d", f.Total())
	}
}

func TestGrow_ClampsAtZero(t *testing.T) {
	f := New(testBox(), 1)
	c := voxel.Vec3i{X: 1, Y: 1, Z: 1}
	f.Request(c, voxel.Sand)
	f.Grow(2)
	if f.Get(c, voxel.Sand) != 2 || f.Get(c, voxel.Stone) != 3 {
		t.Fatalf("grow: sand=%d stone=%d", f.Get(c, voxel.Sand), f.Get(c, voxel.Stone))
	}
	f.Grow(-5)
	if f.Level(c) != 0 {
		t.Fatalf("negative grow went below zero: %d", f.Level(c))
	}
}

func TestRequest_ConcurrentNeverOverdraws(t *testing.T) {
	c := voxel.Vec3i{X: 1, Y: 1, Z: 1}
	f := New(voxel.NewBox(c, c), 100)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got int
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := 0
			for i := 0; i < 50; i++ {
				if f.Request(c, voxel.Stone) {
					n++
				}
			}
			mu.Lock()
			got += n
			mu.Unlock()
		}()
	}
	wg.Wait()
	if got != 100 || f.Get(c, voxel.Stone) != 0 {
		t.Fatalf("granted=%d remaining=%d", got, f.Get(c, voxel.Stone))
	}
}
