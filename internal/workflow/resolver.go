package workflow

import (
	"fmt"
	"time"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
)

// ResolveAmendment applies a decision to the pending amendment.
//
// accept installs proposedChanges, reject keeps originalData, and both clear
// the snapshots and return the release to the status it held before the
// amendment. edit installs counter as the new proposedChanges and starts a
// fresh approval cycle reviewed by the other party.
func ResolveAmendment(r *model.Release, actor model.Actor, decision model.Decision, counter *model.Snapshot, now time.Time) (*model.Release, error) {
	if r.Status != model.StatusApprovalRequired || r.OriginalData == nil || r.ProposedChanges == nil {
		return nil, apperr.NoAmendmentPending(r.ID, string(r.Status))
	}
	returnTo, ok := r.AmendedFrom()
	if !ok {
		return nil, apperr.InvalidTransition(string(r.Status), "", "no recorded pre-amendment status")
	}
	if !mayResolve(r, actor.Role, returnTo) {
		return nil, apperr.Forbidden(string(actor.Role), fmt.Sprintf("%s the amendment on release %s", decision, r.ID))
	}

	next := r.Clone()
	next.UpdatedAt = now

	switch decision {
	case model.DecisionAccept:
		next.Apply(*r.ProposedChanges)
		closeAmendment(next, returnTo, actor, "amendment accepted", now)
	case model.DecisionReject:
		next.Apply(*r.OriginalData)
		closeAmendment(next, returnTo, actor, "amendment rejected", now)
	case model.DecisionEdit:
		if counter == nil {
			return nil, apperr.InvalidRequest("edit requires a counter proposal")
		}
		proposed := counter.Clone()
		if proposed.Credits == nil {
			proposed.Credits = r.ProposedChanges.Clone().Credits
		}
		if err := ValidateTracks(proposed.TrackListing).Err(); err != nil {
			return nil, err
		}
		next.ProposedChanges = &proposed
		next.ProposedBy = actor.Role
		record(next, model.StatusApprovalRequired, model.StatusApprovalRequired, actor, "counter-edit", now)
	default:
		return nil, apperr.InvalidRequest("unknown decision %q", decision)
	}
	return next, nil
}

// mayResolve decides who reviews the pending proposal. A partner proposal
// is answered by whoever holds approval_required -> returnTo; an artist
// counter-edit goes back to whoever may open an amendment from returnTo.
func mayResolve(r *model.Release, role model.Role, returnTo model.ReleaseStatus) bool {
	if r.ProposedBy != "" && !CanTransition(r.ProposedBy, returnTo, model.StatusApprovalRequired) {
		return CanTransition(role, returnTo, model.StatusApprovalRequired)
	}
	return CanTransition(role, model.StatusApprovalRequired, returnTo)
}

func closeAmendment(r *model.Release, returnTo model.ReleaseStatus, actor model.Actor, note string, now time.Time) {
	r.OriginalData = nil
	r.ProposedChanges = nil
	r.ProposedBy = ""
	r.Status = returnTo
	record(r, model.StatusApprovalRequired, returnTo, actor, note, now)
}
