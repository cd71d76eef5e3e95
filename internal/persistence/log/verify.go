package log

import (
	"fmt"

	"blockevo.ai/internal/sim/evolve"
)

// Verifier is a recorder that checks a re-run against a logged run. The
// first generation whose digest or stats differ fails the re-run.
type Verifier struct {
	want    []evolve.GenerationRecord
	checked int
}

var _ evolve.Recorder = (*Verifier)(nil)

func NewVerifier(run *Run) *Verifier {
	return &Verifier{want: run.Generations}
}

// Checked is the number of generations that matched.
func (v *Verifier) Checked() int { return v.checked }

func (v *Verifier) BeginRun(evolve.RunRecord) error { return nil }

func (v *Verifier) WriteGeneration(got evolve.GenerationRecord) error {
	if v.checked >= len(v.want) {
		return fmt.Errorf("generation %d: not in log", got.Generation)
	}
	want := v.want[v.checked]
	if got.Generation != want.Generation {
		return fmt.Errorf("generation mismatch: got=%d want=%d", got.Generation, want.Generation)
	}
	if got.Digest != want.Digest {
		return fmt.Errorf("digest mismatch at generation %d: got=%s want=%s", got.Generation, got.Digest, want.Digest)
	}
	if got.Stats != want.Stats {
		return fmt.Errorf("stats mismatch at generation %d: got=%+v want=%+v", got.Generation, got.Stats, want.Stats)
	}
	v.checked++
	return nil
}

func (v *Verifier) EndRun(evolve.Summary) error { return nil }

// ReplayConfig is the logged run's configuration limited to the generations
// actually logged.
func ReplayConfig(run *Run) (evolve.RunRecord, error) {
	h := run.Header
	if len(run.Generations) == 0 {
		return h, fmt.Errorf("run %s: no generations logged", h.RunID)
	}
	h.Config.Generations = run.Generations[len(run.Generations)-1].Generation
	return h, nil
}
