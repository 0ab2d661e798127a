package osm

import (
	"context"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bova-research/dcatlas/internal/config"
)

// Candidate selection rules.
const (
	RuleExplicitDC      = "current_explicit_dc_tag"
	RuleGenericFallback = "fallback_generic_building"
)

// Enrichment statuses.
const (
	StatusSuccess     = "Success"
	StatusNoCandidate = "No acceptable candidate within max radius"
)

// Enrichment is the outcome for one input coordinate.
type Enrichment struct {
	Analysis
	SelectionRule string `csv:"selection_rule_used"`
	RadiusUsed    int    `csv:"search_radius_used,omitempty"`
	Status        string `csv:"status"`
}

// Enricher runs the two-pass building search: explicit data centers first,
// then generic building shells at the same widening radii.
type Enricher struct {
	client        *Client
	radiusSteps   []int
	genericAllow  map[string]bool
	requireSignal bool
}

// NewEnricher builds an Enricher from configuration.
func NewEnricher(client *Client, cfg config.OSMConfig) *Enricher {
	steps := cfg.RadiusSteps
	if len(steps) == 0 {
		steps = []int{50, 100, 200}
	}
	allow := make(map[string]bool)
	for _, v := range cfg.GenericAllow {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			allow[v] = true
		}
	}
	if len(allow) == 0 {
		allow["yes"] = true
	}
	return &Enricher{
		client:        client,
		radiusSteps:   steps,
		genericAllow:  allow,
		requireSignal: cfg.RequireSignal,
	}
}

// Enrich finds the best building candidate for one coordinate pair.
// A missing candidate is not an error: the returned Enrichment carries the
// no-candidate status.
func (e *Enricher) Enrich(ctx context.Context, lat, lon float64) (*Enrichment, error) {
	log := zap.L().With(zap.Float64("lat", lat), zap.Float64("lon", lon))

	// Pass A: current explicit data centers only.
	for _, radius := range e.radiusSteps {
		elements, err := e.client.FindBuildings(ctx, lat, lon, radius)
		if err != nil {
			return nil, err
		}

		var explicit []Element
		for _, el := range elements {
			if HasExplicitDCTag(el.Tags) {
				explicit = append(explicit, el)
			}
		}
		if len(explicit) == 0 {
			continue
		}

		selected, err := e.pickCandidate(ctx, explicit, false)
		if err != nil {
			return nil, err
		}
		if selected != nil {
			log.Debug("osm: explicit data center selected",
				zap.String("building", selected.BuildingID),
				zap.Int("radius", radius),
			)
			return &Enrichment{
				Analysis:      *selected,
				SelectionRule: RuleExplicitDC,
				RadiusUsed:    radius,
				Status:        StatusSuccess,
			}, nil
		}
	}

	// Pass B: generic shells, same radii. Buildings with a more specific
	// classification (office, industrial, apartments) are rejected.
	for _, radius := range e.radiusSteps {
		elements, err := e.client.FindBuildings(ctx, lat, lon, radius)
		if err != nil {
			return nil, err
		}

		var generic []Element
		for _, el := range elements {
			if e.genericAllow[strings.ToLower(el.Tags["building"])] {
				generic = append(generic, el)
			}
		}
		if len(generic) == 0 {
			continue
		}

		selected, err := e.pickCandidate(ctx, generic, e.requireSignal)
		if err != nil {
			return nil, err
		}
		if selected != nil {
			log.Debug("osm: generic building selected",
				zap.String("building", selected.BuildingID),
				zap.Int("radius", radius),
			)
			return &Enrichment{
				Analysis:      *selected,
				SelectionRule: RuleGenericFallback,
				RadiusUsed:    radius,
				Status:        StatusSuccess,
			}, nil
		}
	}

	log.Debug("osm: no acceptable candidate")
	return &Enrichment{Status: StatusNoCandidate}, nil
}

// pickCandidate analyzes each element's history and picks deterministically:
// the candidate whose classification changed most recently wins.
func (e *Enricher) pickCandidate(ctx context.Context, elements []Element, requireSignal bool) (*Analysis, error) {
	var best *Analysis
	for _, el := range elements {
		versions, err := e.client.History(ctx, el.Type, el.ID)
		if err != nil {
			zap.L().Warn("osm: history fetch failed",
				zap.String("type", el.Type),
				zap.Int64("id", el.ID),
				zap.Error(err),
			)
			continue
		}
		current, err := e.client.Current(ctx, el.Type, el.ID)
		if err != nil {
			zap.L().Warn("osm: current fetch failed",
				zap.String("type", el.Type),
				zap.Int64("id", el.ID),
				zap.Error(err),
			)
			continue
		}

		a := Analyze(el.Type, el.ID, versions, current)
		if a == nil {
			continue
		}
		if requireSignal && !a.HasDateSignal() {
			continue
		}
		if best == nil || a.LastRelevantTimestamp > best.LastRelevantTimestamp {
			best = a
		}
	}
	return best, nil
}

// inputRow is the subset of the cleaned CSV the enrichment needs.
type inputRow struct {
	ID            string  `csv:"id"`
	Name          string  `csv:"name"`
	BestLongitude float64 `csv:"best_longitude"`
	BestLatitude  float64 `csv:"best_latitude"`
}

// outputRow prefixes each enrichment with its input identity.
type outputRow struct {
	ID            string  `csv:"id"`
	Name          string  `csv:"name"`
	BestLongitude float64 `csv:"best_longitude"`
	BestLatitude  float64 `csv:"best_latitude"`
	Enrichment
}

// EnrichFile enriches every row of a cleaned CSV and writes the result.
// Limit bounds the number of rows processed; 0 means all.
func (e *Enricher) EnrichFile(ctx context.Context, inputPath, outputPath string, limit int) (int, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return 0, eris.Wrapf(err, "osm: read %s", inputPath)
	}

	var rows []inputRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return 0, eris.Wrap(err, "osm: parse input csv")
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	zap.L().Info("osm: enriching records",
		zap.String("input", inputPath),
		zap.Int("records", len(rows)),
	)

	out := make([]outputRow, 0, len(rows))
	for i, row := range rows {
		enr, err := e.Enrich(ctx, row.BestLatitude, row.BestLongitude)
		if err != nil {
			if ctx.Err() != nil {
				return 0, err
			}
			zap.L().Warn("osm: enrichment failed",
				zap.String("record", row.ID),
				zap.Error(err),
			)
			enr = &Enrichment{Status: "Error: " + err.Error()}
		}
		out = append(out, outputRow{
			ID:            row.ID,
			Name:          row.Name,
			BestLongitude: row.BestLongitude,
			BestLatitude:  row.BestLatitude,
			Enrichment:    *enr,
		})
		zap.L().Info("osm: record processed",
			zap.Int("index", i+1),
			zap.Int("total", len(rows)),
			zap.String("record", row.ID),
			zap.String("status", enr.Status),
		)
	}

	encoded, err := csvutil.Marshal(out)
	if err != nil {
		return 0, eris.Wrap(err, "osm: marshal output csv")
	}
	if err := os.WriteFile(outputPath, encoded, 0o644); err != nil {
		return 0, eris.Wrapf(err, "osm: write %s", outputPath)
	}
	return len(out), nil
}
