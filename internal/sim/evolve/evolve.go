// Package evolve drives a whole run: it seeds the world with a single root
// block and then advances the population one generation at a time, reporting
// every generation to the attached recorders.
package evolve

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"blockevo.ai/internal/config"
	"blockevo.ai/internal/sim/entity"
	"blockevo.ai/internal/sim/genotype"
	"blockevo.ai/internal/sim/orient"
	"blockevo.ai/internal/sim/population"
	"blockevo.ai/internal/sim/resources"
	"blockevo.ai/internal/sim/voxel"
	"blockevo.ai/internal/sink"
)

// RunRecord opens a run.
type RunRecord struct {
	RunID     string        `json:"run_id"`
	Seed      int64         `json:"seed"`
	StartedAt string        `json:"started_at"`
	Root      [3]int        `json:"root"`
	Genotype  string        `json:"genotype"`
	Config    config.Config `json:"config"`
}

// GenerationRecord is written once per generation, generation zero included.
type GenerationRecord struct {
	RunID string `json:"run_id"`
	population.Stats
	Digest string `json:"digest"`
}

// Summary closes a run.
type Summary struct {
	RunID       string `json:"run_id"`
	Generations int    `json:"generations"`
	FinalSize   int    `json:"final_size"`
	Offspring   int    `json:"offspring"`
	Canceled    bool   `json:"canceled"`
	FinishedAt  string `json:"finished_at"`
}

// Recorder receives the run as it happens. Implementations must not block
// the run for long.
type Recorder interface {
	BeginRun(RunRecord) error
	WriteGeneration(GenerationRecord) error
	EndRun(Summary) error
}

type Runner struct {
	Config config.Config
	Sink   sink.WorldSink
	Log    *log.Logger

	// RunID is generated when empty.
	RunID     string
	Recorders []Recorder

	// OnGeneration, when set, sees every population right after it is
	// recorded.
	OnGeneration func(*population.Population)

	now func() time.Time
}

func (r *Runner) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Printf(format, args...)
	}
}

func (r *Runner) timestamp() string {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	return now().UTC().Format(time.RFC3339Nano)
}

// Run seeds the world and runs every configured generation. On cancellation
// it closes the run with Canceled set and returns the context error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return Summary{}, fmt.Errorf("evolve: %w", err)
	}
	if r.Sink == nil {
		return Summary{}, errors.New("evolve: nil sink")
	}
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	box := cfg.Box()
	field := resources.New(box, cfg.Resources.Richness)

	if err := r.Sink.Fill(ctx, box, voxel.Air); err != nil {
		return Summary{}, fmt.Errorf("evolve: clear world: %w", err)
	}

	env := &entity.Env{
		Rand:            rng,
		Resources:       field,
		Sink:            r.Sink,
		Band:            entity.Band{MinY: cfg.World.VerticalBand[0], MaxY: cfg.World.VerticalBand[1]},
		Table:           orient.TableFor(cfg.Quirks.CorrectedEastWest),
		CopyOnReproduce: cfg.Lineage.CopyOnReproduce,
	}
	if cfg.Quirks.EnforceHorizontalBounds {
		env.Bounds = &box
	}

	newIndex, err := population.NewIndexFactory(cfg.Index.Kind, cfg.Index.BucketSize)
	if err != nil {
		return Summary{}, fmt.Errorf("evolve: %w", err)
	}
	engine := &population.Engine{
		Env:  env,
		Sink: r.Sink,
		Params: population.Params{
			Box:               box,
			SurvivalThreshold: cfg.Resources.SurvivalThreshold,
			Rates: population.Rates{
				Reproduction:  cfg.Rates.Reproduction,
				Mutation:      cfg.Rates.Mutation,
				Recombination: cfg.Rates.Recombination,
			},
		},
		NewIndex: newIndex,
	}

	rootCoord := cfg.RootCoord()
	root := entity.New(rootCoord, voxel.RedstoneBlock, orient.North, genotype.New(rng), env)
	if err := r.Sink.Flush(ctx); err != nil {
		return Summary{}, fmt.Errorf("evolve: seed root: %w", err)
	}

	run := RunRecord{
		RunID:     r.RunID,
		Seed:      cfg.Seed,
		StartedAt: r.timestamp(),
		Root:      rootCoord.ToArray(),
		Genotype:  root.Genotype().String(),
		Config:    cfg,
	}
	for _, rec := range r.Recorders {
		if err := rec.BeginRun(run); err != nil {
			return Summary{}, fmt.Errorf("evolve: begin run: %w", err)
		}
	}
	r.logf("run=%s seed=%d box=%v..%v root=%v genotype=%s", r.RunID, cfg.Seed, box.Min, box.Max, rootCoord, root.Genotype())

	pop := population.Root(root)
	sum := Summary{RunID: r.RunID}
	if err := r.record(pop, field); err != nil {
		return sum, err
	}

	var runErr error
	for g := 1; g <= cfg.Generations; g++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		next, err := engine.Next(ctx, pop)
		if err != nil {
			runErr = fmt.Errorf("evolve: generation %d: %w", g, err)
			break
		}
		pop = next
		r.replenish(field, g)
		if err := r.record(pop, field); err != nil {
			runErr = err
			break
		}
		st := pop.Stats()
		sum.Generations = g
		sum.Offspring += st.Offspring
		r.logf("gen=%d pop=%d offspring=%d vacated=%d mutations=%d recombinations=%d resources=%d",
			g, st.Size, st.Offspring, st.Vacated, st.Mutations, st.Recombinations, field.Total())
	}

	sum.FinalSize = pop.Len()
	sum.Canceled = runErr != nil && ctx.Err() != nil
	sum.FinishedAt = r.timestamp()
	for _, rec := range r.Recorders {
		if err := rec.EndRun(sum); err != nil && runErr == nil {
			runErr = fmt.Errorf("evolve: end run: %w", err)
		}
	}
	if runErr != nil {
		return sum, runErr
	}
	r.logf("run=%s done generations=%d size=%d offspring=%d", r.RunID, sum.Generations, sum.FinalSize, sum.Offspring)
	return sum, nil
}

// replenish runs after generation g. A reset takes precedence over growth.
func (r *Runner) replenish(field *resources.Field, g int) {
	rc := r.Config.Resources
	if rc.ResetEveryGenerations > 0 && g%rc.ResetEveryGenerations == 0 {
		field.Reset(rc.Richness)
		return
	}
	if rc.GrowPerGeneration > 0 {
		field.Grow(rc.GrowPerGeneration)
	}
}

func (r *Runner) record(pop *population.Population, field *resources.Field) error {
	st := pop.Stats()
	st.Generation = pop.Generation()
	st.ResourceTotal = field.Total()
	rec := GenerationRecord{RunID: r.RunID, Stats: st, Digest: pop.Digest()}
	for _, w := range r.Recorders {
		if err := w.WriteGeneration(rec); err != nil {
			return fmt.Errorf("evolve: record generation %d: %w", st.Generation, err)
		}
	}
	if r.OnGeneration != nil {
		r.OnGeneration(pop)
	}
	return nil
}
