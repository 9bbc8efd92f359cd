package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/internal/notify"
	"github.com/mscandco/distribution-api/internal/store"
	"github.com/mscandco/distribution-api/internal/workflow"
)

// ChangeRequestStore is the persistence the change request service needs.
type ChangeRequestStore interface {
	GetRelease(ctx context.Context, id string) (*model.Release, error)
	GetChangeRequest(ctx context.Context, id string) (*model.ChangeRequest, error)
	ListChangeRequests(ctx context.Context, releaseID string, f store.Filter) ([]*model.ChangeRequest, error)
	SaveChangeRequest(ctx context.Context, cr *model.ChangeRequest, expected int64) (*model.ChangeRequest, error)
}

// ChangeRequestService files and reviews change requests on locked releases
type ChangeRequestService struct {
	store    ChangeRequestStore
	notifier notify.Notifier
	now      func() time.Time
	newID    func() string
}

func NewChangeRequestService(s ChangeRequestStore, notifier notify.Notifier) *ChangeRequestService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ChangeRequestService{
		store:    s,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// Create files a pending change request against a release in scope. The
// release itself is not written.
func (s *ChangeRequestService) Create(ctx context.Context, actor model.Actor, releaseID string, req *model.CreateChangeRequest) (*model.ChangeRequest, error) {
	r, err := s.release(ctx, actor, releaseID)
	if err != nil {
		return nil, err
	}
	if req.ExpectedVersion != 0 && req.ExpectedVersion != r.Version {
		return nil, apperr.ConcurrentModification("release "+releaseID, req.ExpectedVersion, r.Version)
	}

	cr, err := workflow.OpenChangeRequest(r, actor, req, s.now())
	if err != nil {
		return nil, err
	}
	cr.ID = s.newID()

	saved, err := s.store.SaveChangeRequest(ctx, cr, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to save change request: %w", err)
	}
	s.emit(ctx, model.EventChangeRequested, actor, r, saved)
	return saved, nil
}

// List returns the change requests of a release in scope, optionally by
// status.
func (s *ChangeRequestService) List(ctx context.Context, actor model.Actor, releaseID, status string) ([]*model.ChangeRequest, error) {
	f := store.Filter{}
	if status != "" {
		st, ok := model.ParseChangeRequestStatus(status)
		if !ok {
			return nil, apperr.InvalidRequest("unknown change request status %q", status)
		}
		f.Status = string(st)
	}
	if _, err := s.release(ctx, actor, releaseID); err != nil {
		return nil, err
	}

	requests, err := s.store.ListChangeRequests(ctx, releaseID, f)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []*model.ChangeRequest{}
	}
	return requests, nil
}

// Get returns one change request of a release in scope.
func (s *ChangeRequestService) Get(ctx context.Context, actor model.Actor, releaseID, id string) (*model.ChangeRequest, error) {
	if _, err := s.release(ctx, actor, releaseID); err != nil {
		return nil, err
	}
	return s.load(ctx, releaseID, id)
}

// Approve marks a pending change request approved.
func (s *ChangeRequestService) Approve(ctx context.Context, actor model.Actor, releaseID, id, notes string, expected int64) (*model.ChangeRequest, error) {
	return s.review(ctx, actor, releaseID, id, model.ReviewApprove, notes, expected)
}

// Reject marks a pending change request rejected. Notes are required.
func (s *ChangeRequestService) Reject(ctx context.Context, actor model.Actor, releaseID, id, notes string, expected int64) (*model.ChangeRequest, error) {
	return s.review(ctx, actor, releaseID, id, model.ReviewReject, notes, expected)
}

func (s *ChangeRequestService) review(ctx context.Context, actor model.Actor, releaseID, id string, decision model.ReviewDecision, notes string, expected int64) (*model.ChangeRequest, error) {
	r, err := s.release(ctx, actor, releaseID)
	if err != nil {
		return nil, err
	}
	current, err := s.load(ctx, releaseID, id)
	if err != nil {
		return nil, err
	}
	if expected != 0 && expected != current.Version {
		return nil, apperr.ConcurrentModification("change request "+id, expected, current.Version)
	}

	next, changed, err := workflow.ReviewChangeRequest(current, actor, decision, notes, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return current, nil
	}

	saved, err := s.store.SaveChangeRequest(ctx, next, current.Version)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventChangeReviewed, actor, r, saved)
	return saved, nil
}

// release loads a release the actor may see. Out of scope reads as missing.
func (s *ChangeRequestService) release(ctx context.Context, actor model.Actor, id string) (*model.Release, error) {
	r, err := s.store.GetRelease(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessRelease(r) {
		return nil, apperr.NotFound("release", id)
	}
	return r, nil
}

// load fetches a change request and checks it belongs to releaseID.
func (s *ChangeRequestService) load(ctx context.Context, releaseID, id string) (*model.ChangeRequest, error) {
	cr, err := s.store.GetChangeRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if cr.ReleaseID != releaseID {
		return nil, apperr.NotFound("change request", id)
	}
	return cr, nil
}

func (s *ChangeRequestService) emit(ctx context.Context, kind string, actor model.Actor, r *model.Release, cr *model.ChangeRequest) {
	s.notifier.ReleaseEvent(ctx, model.ReleaseEvent{
		Kind:            kind,
		ReleaseID:       r.ID,
		ArtistID:        r.ArtistID,
		LabelID:         r.LabelID,
		From:            r.Status,
		To:              r.Status,
		Role:            actor.Role,
		UserID:          actor.UserID,
		Version:         r.Version,
		At:              cr.UpdatedAt,
		ChangeRequestID: cr.ID,
		ChangeStatus:    cr.Status,
	})
}
