package workflow

import (
	"fmt"
	"time"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
)

// Edge is a single allowed status transition.
type Edge struct {
	From   model.ReleaseStatus
	To     model.ReleaseStatus
	Actors []model.Role
	// Amendment edges are only taken by ProposeAmendment and ResolveAmendment.
	Amendment bool
}

var edges = []Edge{
	// Artist-owned
	{From: model.StatusDraft, To: model.StatusSubmitted, Actors: []model.Role{model.RoleArtist, model.RoleLabelAdmin}},
	{From: model.StatusSubmitted, To: model.StatusDraft, Actors: []model.Role{model.RoleArtist}},

	// Partner review path
	{From: model.StatusSubmitted, To: model.StatusUnderReview, Actors: []model.Role{model.RoleDistributionPartner}},
	{From: model.StatusUnderReview, To: model.StatusCompleted, Actors: []model.Role{model.RoleDistributionPartner}},
	{From: model.StatusCompleted, To: model.StatusLive, Actors: []model.Role{model.RoleDistributionPartner}},

	// Amendment protocol
	{From: model.StatusUnderReview, To: model.StatusApprovalRequired, Actors: []model.Role{model.RoleDistributionPartner}, Amendment: true},
	{From: model.StatusCompleted, To: model.StatusApprovalRequired, Actors: []model.Role{model.RoleDistributionPartner}, Amendment: true},
	{From: model.StatusLive, To: model.StatusApprovalRequired, Actors: []model.Role{model.RoleDistributionPartner}, Amendment: true},
	{From: model.StatusApprovalRequired, To: model.StatusUnderReview, Actors: []model.Role{model.RoleArtist}, Amendment: true},
	{From: model.StatusApprovalRequired, To: model.StatusCompleted, Actors: []model.Role{model.RoleArtist}, Amendment: true},
	{From: model.StatusApprovalRequired, To: model.StatusLive, Actors: []model.Role{model.RoleArtist}, Amendment: true},
}

// Lookup finds the edge for a from/to pair.
func Lookup(from, to model.ReleaseStatus) (Edge, bool) {
	for _, e := range edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// AllowedTargets lists the plain transitions role may request from from.
// Amendment edges are left out; they have their own operations.
func AllowedTargets(role model.Role, from model.ReleaseStatus) []model.ReleaseStatus {
	out := []model.ReleaseStatus{}
	for _, e := range edges {
		if e.From == from && !e.Amendment && CanTransition(role, e.From, e.To) {
			out = append(out, e.To)
		}
	}
	return out
}

// Transition applies a plain status change requested by actor. A request for
// the status the release already holds is a no-op success and reports
// changed == false.
func Transition(r *model.Release, actor model.Actor, to model.ReleaseStatus, note string, now time.Time) (*model.Release, bool, error) {
	from := r.Status
	if from == to {
		if !CanEnter(actor.Role, to) {
			return nil, false, apperr.Forbidden(string(actor.Role), fmt.Sprintf("move release to %s", to))
		}
		return r.Clone(), false, nil
	}

	edge, ok := Lookup(from, to)
	if !ok {
		return nil, false, apperr.InvalidTransition(string(from), string(to), "")
	}
	if !CanTransition(actor.Role, from, to) {
		return nil, false, apperr.Forbidden(string(actor.Role), fmt.Sprintf("move release from %s to %s", from, to))
	}
	if edge.Amendment {
		return nil, false, apperr.InvalidTransition(string(from), string(to), "handled by the amendment protocol")
	}
	if to == model.StatusSubmitted {
		if err := ValidateForSubmission(r).Err(); err != nil {
			return nil, false, err
		}
	}

	next := r.Clone()
	next.Status = to
	next.UpdatedAt = now
	if to == model.StatusSubmitted {
		at := now
		next.SubmittedAt = &at
	}
	record(next, from, to, actor, note, now)
	return next, true, nil
}

func record(r *model.Release, from, to model.ReleaseStatus, actor model.Actor, note string, now time.Time) {
	r.History = append(r.History, model.TransitionRecord{
		From:   from,
		To:     to,
		Role:   actor.Role,
		UserID: actor.UserID,
		Note:   note,
		At:     now,
	})
}
