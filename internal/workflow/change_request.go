package workflow

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
)

const defaultUrgency = 1

// CanRequestChanges reports whether role may file change requests. Scope
// over the release is checked by the caller.
func CanRequestChanges(role model.Role) bool {
	switch role {
	case model.RoleArtist, model.RoleLabelAdmin, model.RoleCompanyAdmin, model.RoleSuperAdmin:
		return true
	}
	return false
}

// CanReviewChangeRequests reports whether role may approve or reject them.
func CanReviewChangeRequests(role model.Role) bool {
	switch role {
	case model.RoleDistributionPartner, model.RoleCompanyAdmin, model.RoleSuperAdmin:
		return true
	}
	return false
}

// OpenChangeRequest builds a pending change request against r. The current
// value is read from the release when the field has a single value, so the
// caller's copy is only kept for list fields.
func OpenChangeRequest(r *model.Release, actor model.Actor, req *model.CreateChangeRequest, now time.Time) (*model.ChangeRequest, error) {
	if !CanRequestChanges(actor.Role) {
		return nil, apperr.Forbidden(string(actor.Role), "request release changes")
	}
	if !r.Status.Locked() {
		return nil, apperr.InvalidRequest("change requests apply to releases under review, completed or live; release %s is %s", r.ID, r.Status)
	}

	field := model.Field(strings.TrimSpace(string(req.Field)))
	if !slices.Contains(model.ChangeRequestFields, field) {
		return nil, apperr.InvalidRequest("unknown field %q", req.Field)
	}
	if req.TrackIndex != nil && (*req.TrackIndex < 0 || *req.TrackIndex >= len(r.TrackListing)) {
		return nil, apperr.InvalidRequest("track %d does not exist", *req.TrackIndex)
	}
	if field == model.FieldISRC && req.TrackIndex == nil {
		return nil, apperr.InvalidRequest("trackIndex is required for isrc")
	}

	reason := strings.TrimSpace(req.Reason)
	requested := strings.TrimSpace(req.RequestedValue)
	if reason == "" || requested == "" {
		return nil, apperr.InvalidRequest("a reason and a requested value are required")
	}

	cr := &model.ChangeRequest{
		ReleaseID:      r.ID,
		ArtistID:       r.ArtistID,
		LabelID:        r.LabelID,
		Field:          field,
		CurrentValue:   strings.TrimSpace(req.CurrentValue),
		RequestedValue: requested,
		Reason:         reason,
		Urgency:        req.Urgency,
		ReleaseStatus:  r.Status,
		Status:         model.ChangeRequestPending,
		RequestedBy:    actor.UserID,
		RequesterRole:  actor.Role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.TrackIndex != nil {
		i := *req.TrackIndex
		cr.TrackIndex = &i
	}
	if cr.Urgency == 0 {
		cr.Urgency = defaultUrgency
	}
	if current, ok := r.FieldValue(field, cr.TrackIndex); ok {
		if current == requested {
			return nil, apperr.InvalidRequest("%s already holds %q", cr.Target(), requested)
		}
		cr.CurrentValue = current
	}
	return cr, nil
}

// ReviewChangeRequest approves or rejects a pending change request.
// Repeating the recorded decision is a no-op success with changed == false.
// Approval records the decision only; the release is changed through the
// normal edit and amendment operations.
func ReviewChangeRequest(cr *model.ChangeRequest, actor model.Actor, decision model.ReviewDecision, notes string, now time.Time) (*model.ChangeRequest, bool, error) {
	var target model.ChangeRequestStatus
	switch decision {
	case model.ReviewApprove:
		target = model.ChangeRequestApproved
	case model.ReviewReject:
		target = model.ChangeRequestRejected
	default:
		return nil, false, apperr.InvalidRequest("unknown change request decision %q", decision)
	}

	if !CanReviewChangeRequests(actor.Role) {
		return nil, false, apperr.Forbidden(string(actor.Role), fmt.Sprintf("%s change requests", decision))
	}
	if cr.RequestedBy == actor.UserID {
		return nil, false, apperr.Forbidden(string(actor.Role), "review its own change request")
	}
	changed, err := pendingReview(cr.Status, target, model.ChangeRequestPending, "change request")
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return cr.Clone(), false, nil
	}

	notes = strings.TrimSpace(notes)
	if target == model.ChangeRequestRejected && notes == "" {
		return nil, false, apperr.InvalidRequest("rejection notes are required")
	}

	next := cr.Clone()
	next.Status = target
	next.ReviewedBy = actor.UserID
	next.ReviewNotes = notes
	next.ReviewedAt = &now
	next.UpdatedAt = now
	return next, true, nil
}
