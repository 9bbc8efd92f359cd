package workflow

import (
	"fmt"
	"time"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
)

// ProposeAmendment snapshots the release, installs the partner's revision and
// moves the release to approval_required. Credits left nil in the proposal
// are carried over unchanged.
func ProposeAmendment(r *model.Release, actor model.Actor, proposal model.Snapshot, feedback string, now time.Time) (*model.Release, error) {
	from := r.Status
	if from == model.StatusApprovalRequired || r.HasPendingAmendment() {
		if !CanEnter(actor.Role, model.StatusApprovalRequired) {
			return nil, apperr.Forbidden(string(actor.Role), "propose an amendment")
		}
		return nil, apperr.AmendmentInProgress(r.ID)
	}
	if _, ok := Lookup(from, model.StatusApprovalRequired); !ok {
		return nil, apperr.InvalidTransition(string(from), string(model.StatusApprovalRequired), "amendments apply to releases under review, completed or live")
	}
	if !CanTransition(actor.Role, from, model.StatusApprovalRequired) {
		return nil, apperr.Forbidden(string(actor.Role), fmt.Sprintf("propose an amendment while %s", from))
	}

	proposed := proposal.Clone()
	if proposed.Credits == nil {
		proposed.Credits = r.Snapshot().Credits
	}
	if err := ValidateTracks(proposed.TrackListing).Err(); err != nil {
		return nil, err
	}

	next := r.Clone()
	original := r.Snapshot()
	next.OriginalData = &original
	next.ProposedChanges = &proposed
	next.ProposedBy = actor.Role
	if feedback != "" {
		next.Feedback = feedback
	}
	next.Status = model.StatusApprovalRequired
	next.UpdatedAt = now
	record(next, from, model.StatusApprovalRequired, actor, feedback, now)
	return next, nil
}

// Diff compares the two snapshots position by position. Tracks present on
// only one side are compared against an empty track.
func Diff(original, proposed model.Snapshot) []model.FieldDelta {
	n := len(original.TrackListing)
	if len(proposed.TrackListing) > n {
		n = len(proposed.TrackListing)
	}
	deltas := make([]model.FieldDelta, 0, n*len(model.DiffTrackFields))
	for i := 0; i < n; i++ {
		var a, b model.Track
		if i < len(original.TrackListing) {
			a = original.TrackListing[i]
		}
		if i < len(proposed.TrackListing) {
			b = proposed.TrackListing[i]
		}
		for _, field := range model.DiffTrackFields {
			ov, pv := a.Value(field), b.Value(field)
			deltas = append(deltas, model.FieldDelta{
				TrackIndex:    i,
				Field:         field,
				OriginalValue: ov,
				ProposedValue: pv,
				Changed:       ov != pv,
			})
		}
	}
	return deltas
}

// Changed filters deltas down to the changed rows.
func Changed(deltas []model.FieldDelta) []model.FieldDelta {
	out := []model.FieldDelta{}
	for _, d := range deltas {
		if d.Changed {
			out = append(out, d)
		}
	}
	return out
}

// CreditsChanged compares two credit lists as multisets.
func CreditsChanged(a, b []model.Credit) bool {
	if len(a) != len(b) {
		return true
	}
	counts := make(map[model.Credit]int, len(a))
	for _, c := range a {
		counts[c]++
	}
	for _, c := range b {
		counts[c]--
		if counts[c] < 0 {
			return true
		}
	}
	return false
}

// Amendment builds the diff view of the pending amendment.
func Amendment(r *model.Release) (*model.AmendmentResponse, error) {
	if r.Status != model.StatusApprovalRequired || r.OriginalData == nil || r.ProposedChanges == nil {
		return nil, apperr.NoAmendmentPending(r.ID, string(r.Status))
	}
	returnTo, _ := r.AmendedFrom()
	deltas := Diff(*r.OriginalData, *r.ProposedChanges)
	return &model.AmendmentResponse{
		ReleaseID:       r.ID,
		Version:         r.Version,
		ReturnStatus:    returnTo,
		ProposedBy:      r.ProposedBy,
		Feedback:        r.Feedback,
		Deltas:          deltas,
		Changes:         Changed(deltas),
		CreditsChanged:  CreditsChanged(r.OriginalData.Credits, r.ProposedChanges.Credits),
		OriginalData:    r.OriginalData.Clone(),
		ProposedChanges: r.ProposedChanges.Clone(),
	}, nil
}
