// Package pipeline orchestrates the cleaning run: load, CONUS filter, spatial
// join, coordinate resolution, and output writing.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bova-research/dcatlas/internal/boundary"
	"github.com/bova-research/dcatlas/internal/checkpoint"
	"github.com/bova-research/dcatlas/internal/config"
	"github.com/bova-research/dcatlas/internal/dataset"
	"github.com/bova-research/dcatlas/internal/model"
	"github.com/bova-research/dcatlas/pkg/geocode"
)

// Pipeline runs the full cleaning flow over one input dataset.
type Pipeline struct {
	cfg        *config.Config
	boundaries *boundary.Index
	geocoder   geocode.Client
	store      *checkpoint.Store
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, idx *boundary.Index, gc geocode.Client, st *checkpoint.Store) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		boundaries: idx,
		geocoder:   gc,
		store:      st,
	}
}

// ResumeAuto asks the pipeline to find the latest unfinished run over the
// input instead of resuming an explicit run ID.
const ResumeAuto = "auto"

// Options control a single `clean run` invocation.
type Options struct {
	Input     string
	CleanOut  string
	SecretOut string
	Manifest  string
	States    []string // optional USPS filter; empty means all CONUS states
	Limit     int      // 0 means no limit
	DryRun    bool
	ResumeRun string // run ID or ResumeAuto; "" starts a fresh run
}

// Report is what a run hands back to the command layer.
type Report struct {
	RunID     string
	Summary   *checkpoint.RunSummary
	CleanOut  string
	SecretOut string
	DryRun    bool
}

// Run executes the pipeline.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	log := zap.L().With(zap.String("input", opts.Input))
	log.Info("pipeline: starting clean run")
	start := time.Now()

	records, err := dataset.Load(opts.Input)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load dataset")
	}
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	total := len(records)
	log.Info("pipeline: dataset loaded", zap.Int("records", total))

	kept, dropped := p.filterCONUS(records, opts.States)
	log.Info("pipeline: conus filter",
		zap.Int("kept", len(kept)),
		zap.Int("dropped", len(dropped)),
	)

	summary := &checkpoint.RunSummary{
		Total:        total,
		ByProvider:   make(map[string]int),
		ByDropReason: make(map[string]int),
	}
	for i := range dropped {
		summary.ByDropReason[dropped[i].DropReason]++
	}

	if opts.DryRun {
		summary.Dropped = len(dropped)
		return &Report{Summary: summary, DryRun: true}, nil
	}

	run, resolved, err := p.openRun(ctx, opts)
	if err != nil {
		return nil, err
	}

	clean, secret, resolveDropped, err := p.resolveAll(ctx, run.ID, kept, resolved)
	if err != nil {
		if failErr := p.store.FailRun(ctx, run.ID); failErr != nil {
			log.Warn("pipeline: failed to mark run failed", zap.Error(failErr))
		}
		return nil, err
	}
	dropped = append(dropped, resolveDropped...)

	summary.Kept = len(clean)
	summary.Secret = len(secret)
	summary.Dropped = len(dropped)
	for i := range resolveDropped {
		summary.ByDropReason[resolveDropped[i].DropReason]++
	}
	for i := range clean {
		if clean[i].CoordSource != model.SourceOriginal {
			summary.Geocoded++
			summary.ByProvider[clean[i].CoordSource]++
		}
	}
	for i := range secret {
		summary.Geocoded++
		summary.ByProvider[secret[i].CoordSource]++
	}

	if err := WriteRecords(opts.CleanOut, clean); err != nil {
		return nil, eris.Wrap(err, "pipeline: write clean output")
	}
	if err := WriteRecords(opts.SecretOut, secret); err != nil {
		return nil, eris.Wrap(err, "pipeline: write secret output")
	}
	if opts.Manifest != "" {
		m := buildManifest(run.ID, opts, summary, time.Since(start))
		if err := WriteManifest(opts.Manifest, m); err != nil {
			return nil, eris.Wrap(err, "pipeline: write manifest")
		}
	}

	if err := p.store.CompleteRun(ctx, run.ID, summary); err != nil {
		log.Warn("pipeline: failed to complete run", zap.Error(err))
	}

	log.Info("pipeline: clean run complete",
		zap.String("run_id", run.ID),
		zap.Int("clean", summary.Kept),
		zap.Int("secret", summary.Secret),
		zap.Int("dropped", summary.Dropped),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Report{
		RunID:     run.ID,
		Summary:   summary,
		CleanOut:  opts.CleanOut,
		SecretOut: opts.SecretOut,
	}, nil
}

// openRun creates a fresh run, or loads the prior run and its resolutions
// when resuming. ResumeAuto falls back to a fresh run when no unfinished run
// exists for the input.
func (p *Pipeline) openRun(ctx context.Context, opts Options) (*checkpoint.Run, map[string]checkpoint.Resolution, error) {
	var run *checkpoint.Run
	var err error
	switch opts.ResumeRun {
	case "":
	case ResumeAuto:
		run, err = p.store.ResumableRun(ctx, opts.Input)
		if err != nil {
			return nil, nil, eris.Wrap(err, "pipeline: find resumable run")
		}
		if run == nil {
			zap.L().Info("pipeline: no unfinished run over this input, starting fresh")
		}
	default:
		run, err = p.store.GetRun(ctx, opts.ResumeRun)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "pipeline: resume run %s", opts.ResumeRun)
		}
	}

	if run == nil {
		run, err = p.store.CreateRun(ctx, opts.Input)
		if err != nil {
			return nil, nil, eris.Wrap(err, "pipeline: create run")
		}
		return run, nil, nil
	}

	resolved, err := p.store.Resolutions(ctx, run.ID)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: load resolutions")
	}
	zap.L().Info("pipeline: resuming run",
		zap.String("run_id", run.ID),
		zap.Int("already_resolved", len(resolved)),
	)
	return run, resolved, nil
}

// resolveAll settles every surviving record. Records the spatial join can
// settle locally never touch the geocoder; the rest go through one batch
// geocode pass, parallel inside the cascade. Previously dropped records are
// skipped outright; kept and secret records re-derive cheaply because
// provider results are served from the geocode cache.
func (p *Pipeline) resolveAll(
	ctx context.Context,
	runID string,
	records []model.Record,
	resolved map[string]checkpoint.Resolution,
) (clean, secret, dropped []model.Record, err error) {
	var pending []int

	for i := range records {
		rec := &records[i]

		if prev, ok := resolved[rec.ID]; ok && prev.Outcome == checkpoint.OutcomeDropped {
			rec.DropReason = prev.Detail
			if rec.DropReason == "" {
				rec.DropReason = model.DropUnresolved
			}
			dropped = append(dropped, *rec)
			continue
		}

		if outcome, ok := p.resolveLocal(rec); ok {
			p.markResolved(ctx, runID, rec, outcome)
			clean = append(clean, *rec)
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return clean, secret, dropped, nil
	}

	addrs := make([]geocode.AddressInput, len(pending))
	for j, idx := range pending {
		addrs[j] = addressOf(&records[idx])
	}
	results, err := p.geocoder.BatchGeocode(ctx, addrs)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "pipeline: batch geocode")
	}

	for j, idx := range pending {
		rec := &records[idx]
		outcome := p.applyGeocoded(rec, &results[j])
		p.markResolved(ctx, runID, rec, outcome)
		switch outcome {
		case checkpoint.OutcomeKept:
			clean = append(clean, *rec)
		case checkpoint.OutcomeSecret:
			secret = append(secret, *rec)
		default:
			dropped = append(dropped, *rec)
		}
	}
	return clean, secret, dropped, nil
}

func (p *Pipeline) markResolved(ctx context.Context, runID string, rec *model.Record, outcome string) {
	res := checkpoint.Resolution{RecordID: rec.ID, Outcome: outcome, Detail: rec.DropReason}
	if err := p.store.MarkResolved(ctx, runID, res); err != nil {
		zap.L().Warn("pipeline: checkpoint write failed",
			zap.String("record", rec.ID),
			zap.Error(err),
		)
	}
}
