package pipeline

import (
	"go.uber.org/zap"

	"github.com/bova-research/dcatlas/internal/checkpoint"
	"github.com/bova-research/dcatlas/internal/model"
	"github.com/bova-research/dcatlas/pkg/geocode"
)

// resolveLocal settles a record without the geocoder when it can. Records
// whose source point falls inside the claimed state keep their coordinates
// untouched; everything else needs a geocode pass.
func (p *Pipeline) resolveLocal(rec *model.Record) (string, bool) {
	if !rec.HasCoordinates() {
		return "", false
	}
	rec.JoinedState = p.boundaries.Lookup(*rec.Longitude, *rec.Latitude)
	if rec.JoinedState != rec.State {
		return "", false
	}
	rec.StateMatch = true
	rec.SetBest(*rec.Longitude, *rec.Latitude, model.SourceOriginal, model.QualityRooftop)
	return checkpoint.OutcomeKept, true
}

// applyGeocoded decides the fate of a record from its geocode result.
//
// A record with coordinates got here because its point joined a different
// state than claimed; either the coordinates or the label is wrong, and the
// record survives only when a provider puts it back inside the claimed
// state. Records without coordinates are geocoded into the lower-confidence
// secret output.
func (p *Pipeline) applyGeocoded(rec *model.Record, result *geocode.Result) string {
	if rec.HasCoordinates() {
		return p.applyMismatch(rec, result)
	}
	return p.applySecret(rec, result)
}

func (p *Pipeline) applyMismatch(rec *model.Record, result *geocode.Result) string {
	log := zap.L().With(
		zap.String("record", rec.ID),
		zap.String("claimed", rec.State),
		zap.String("joined", rec.JoinedState),
	)

	if !result.Matched {
		rec.DropReason = model.DropGeocodeMiss
		log.Info("resolve: mismatch unresolved, no provider match")
		return checkpoint.OutcomeDropped
	}

	joined := p.boundaries.Lookup(result.Longitude, result.Latitude)
	if joined != rec.State {
		rec.DropReason = model.DropUnresolved
		log.Info("resolve: geocoded point still outside claimed state",
			zap.String("geocoded_state", joined),
			zap.String("provider", result.Source),
		)
		return checkpoint.OutcomeDropped
	}

	rec.StateMatch = true
	rec.SetBest(result.Longitude, result.Latitude, result.Source, result.Quality)
	log.Debug("resolve: mismatch corrected by geocoder", zap.String("provider", result.Source))
	return checkpoint.OutcomeKept
}

func (p *Pipeline) applySecret(rec *model.Record, result *geocode.Result) string {
	if !result.Matched {
		rec.DropReason = model.DropGeocodeMiss
		return checkpoint.OutcomeDropped
	}

	rec.JoinedState = p.boundaries.Lookup(result.Longitude, result.Latitude)
	rec.StateMatch = rec.JoinedState == rec.State
	rec.SetBest(result.Longitude, result.Latitude, result.Source, result.Quality)
	return checkpoint.OutcomeSecret
}

func addressOf(rec *model.Record) geocode.AddressInput {
	return geocode.AddressInput{
		ID:      rec.ID,
		Street:  rec.Street,
		City:    rec.City,
		State:   rec.State,
		ZipCode: rec.ZipCode,
	}
}
