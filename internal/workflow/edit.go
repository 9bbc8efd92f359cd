package workflow

import (
	"fmt"
	"time"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
)

// EditRelease applies direct field edits outside of a status transition.
// Every touched field must pass CanEditField; from submitted onward the
// edited track listing must still be complete.
func EditRelease(r *model.Release, actor model.Actor, req *model.UpdateReleaseRequest, now time.Time) (*model.Release, error) {
	next := r.Clone()
	touched := 0

	steps := []struct {
		set   bool
		field model.Field
		apply func()
	}{
		{req.ProjectName != nil, model.FieldProjectName, func() { next.ProjectName = *req.ProjectName }},
		{req.Artist != nil, model.FieldArtist, func() { next.Artist = *req.Artist }},
		{req.ReleaseType != nil, model.FieldReleaseType, func() { next.ReleaseType = *req.ReleaseType }},
		{req.Genre != nil, model.FieldGenre, func() { next.Genre = *req.Genre }},
		{req.ExpectedReleaseDate != nil, model.FieldExpectedReleaseDate, func() { next.ExpectedReleaseDate = *req.ExpectedReleaseDate }},
		{req.TrackListing != nil, model.FieldTrackListing, func() { next.Apply(model.Snapshot{TrackListing: req.TrackListing, Credits: next.Credits}) }},
		{req.Credits != nil, model.FieldCredits, func() { next.Apply(model.Snapshot{TrackListing: next.TrackListing, Credits: req.Credits}) }},
		{req.Feedback != nil, model.FieldFeedback, func() { next.Feedback = *req.Feedback }},
	}
	for _, s := range steps {
		if !s.set {
			continue
		}
		if !CanEditField(actor.Role, r.Status, s.field) {
			return nil, forbiddenEdit(actor.Role, s.field, r.Status)
		}
		s.apply()
		touched++
	}

	if len(req.ISRCUpdates) > 0 {
		if !CanEditField(actor.Role, r.Status, model.FieldISRC) {
			return nil, forbiddenEdit(actor.Role, model.FieldISRC, r.Status)
		}
		for _, u := range req.ISRCUpdates {
			if u.TrackIndex < 0 || u.TrackIndex >= len(next.TrackListing) {
				return nil, apperr.InvalidRequest("track index %d out of range (release has %d tracks)", u.TrackIndex, len(next.TrackListing))
			}
			next.TrackListing[u.TrackIndex].ISRC = u.ISRC
		}
		touched++
	}

	if touched == 0 {
		return nil, apperr.InvalidRequest("no fields to update")
	}
	if next.Status != model.StatusDraft {
		if err := ValidateTracks(next.TrackListing).Err(); err != nil {
			return nil, err
		}
	}
	next.UpdatedAt = now
	return next, nil
}

func forbiddenEdit(role model.Role, field model.Field, status model.ReleaseStatus) error {
	return apperr.Forbidden(string(role), fmt.Sprintf("edit %s while %s", field, status))
}
