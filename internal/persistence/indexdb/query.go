package indexdb

import (
	"context"
	"database/sql"
	"fmt"

	"blockevo.ai/internal/sim/evolve"
	"blockevo.ai/internal/sim/population"
)

// RunRow is a run as stored in the index. Finish fields are zero for runs
// that never ended.
type RunRow struct {
	RunID       string
	Seed        int64
	StartedAt   string
	Genotype    string
	FinishedAt  string
	Generations int
	FinalSize   int
	Offspring   int
	Canceled    bool
}

// Runs lists indexed runs, newest first.
func (s *SQLiteIndex) Runs(ctx context.Context) ([]RunRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id,seed,started_at,genotype,
		COALESCE(finished_at,''),COALESCE(generations,0),COALESCE(final_size,0),COALESCE(offspring,0),COALESCE(canceled,0)
		FROM runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		var r RunRow
		var canceled int
		if err := rows.Scan(&r.RunID, &r.Seed, &r.StartedAt, &r.Genotype, &r.FinishedAt, &r.Generations, &r.FinalSize, &r.Offspring, &canceled); err != nil {
			return nil, err
		}
		r.Canceled = canceled != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Generations returns the indexed generations of a run in order.
func (s *SQLiteIndex) Generations(ctx context.Context, runID string) ([]evolve.GenerationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT generation,occupied,inherited,vacated,attempts,offspring,mutations,recombinations,size,resource_total,digest
		FROM generations WHERE run_id=? ORDER BY generation`, runID)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	defer rows.Close()
	var out []evolve.GenerationRecord
	for rows.Next() {
		var st population.Stats
		var digest string
		if err := rows.Scan(&st.Generation, &st.Occupied, &st.Inherited, &st.Vacated, &st.Attempts, &st.Offspring,
			&st.Mutations, &st.Recombinations, &st.Size, &st.ResourceTotal, &digest); err != nil {
			return nil, err
		}
		out = append(out, evolve.GenerationRecord{RunID: runID, Stats: st, Digest: digest})
	}
	return out, rows.Err()
}

// PeakGeneration returns the generation with the largest population, the
// earliest one on ties.
func (s *SQLiteIndex) PeakGeneration(ctx context.Context, runID string) (generation, size int, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT generation,size FROM generations WHERE run_id=? ORDER BY size DESC, generation ASC LIMIT 1`, runID)
	if err := row.Scan(&generation, &size); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, fmt.Errorf("run %s: no generations indexed", runID)
		}
		return 0, 0, err
	}
	return generation, size, nil
}
