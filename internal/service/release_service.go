package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/client"
	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/internal/notify"
	"github.com/mscandco/distribution-api/internal/store"
	"github.com/mscandco/distribution-api/internal/workflow"
)

// ManifestURLExpiry is how long a signed manifest link stays valid.
const ManifestURLExpiry = 15 * time.Minute

// ReleaseStore is the persistence the release service needs.
type ReleaseStore interface {
	GetRelease(ctx context.Context, id string) (*model.Release, error)
	ListReleases(ctx context.Context, f store.Filter) ([]*model.Release, error)
	SaveRelease(ctx context.Context, r *model.Release, expected int64) (*model.Release, error)
}

// ReleaseService orchestrates load -> workflow -> versioned save -> notify.
type ReleaseService struct {
	store    ReleaseStore
	notifier notify.Notifier
	objects  client.ObjectStore
	now      func() time.Time
	newID    func() string
}

// NewReleaseService creates a release service. objects may be nil.
func NewReleaseService(s ReleaseStore, notifier notify.Notifier, objects client.ObjectStore) *ReleaseService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ReleaseService{
		store:    s,
		notifier: notifier,
		objects:  objects,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// Create opens a new draft. Artists create for themselves; label admins
// create for a named artist within their label.
func (s *ReleaseService) Create(ctx context.Context, actor model.Actor, req *model.CreateReleaseRequest) (*model.Release, error) {
	if !workflow.CanCreate(actor.Role) {
		return nil, apperr.Forbidden(string(actor.Role), "create releases")
	}

	artistID := actor.UserID
	labelID := ""
	if actor.Role == model.RoleArtist {
		if req.ArtistID != "" && req.ArtistID != actor.UserID {
			return nil, apperr.Forbidden(string(actor.Role), "create releases for another artist")
		}
	} else {
		if actor.LabelScope == "" {
			return nil, apperr.Forbidden(string(actor.Role), "create releases without a label scope")
		}
		if req.ArtistID == "" {
			return nil, apperr.InvalidRequest("artistId is required")
		}
		artistID = req.ArtistID
		labelID = actor.LabelScope
	}

	now := s.now()
	r := &model.Release{
		ID:                  s.newID(),
		Status:              model.StatusDraft,
		ArtistID:            artistID,
		LabelID:             labelID,
		ProjectName:         strings.TrimSpace(req.ProjectName),
		Artist:              strings.TrimSpace(req.Artist),
		ReleaseType:         req.ReleaseType,
		Genre:               req.Genre,
		ExpectedReleaseDate: req.ExpectedReleaseDate,
		TrackListing:        req.TrackListing,
		Credits:             req.Credits,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if r.TrackListing == nil {
		r.TrackListing = []model.Track{}
	}
	if r.Credits == nil {
		r.Credits = []model.Credit{}
	}

	saved, err := s.store.SaveRelease(ctx, r, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to save release: %w", err)
	}
	s.emit(ctx, model.EventReleaseCreated, actor, "", saved, "")
	return saved, nil
}

// Get returns a release within the actor's scope. Releases outside the
// scope are reported as not found.
func (s *ReleaseService) Get(ctx context.Context, actor model.Actor, id string) (*model.Release, error) {
	r, err := s.store.GetRelease(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessRelease(r) {
		return nil, apperr.NotFound("release", id)
	}
	return r, nil
}

// Detail returns the release with the plain transitions the actor may
// request next.
func (s *ReleaseService) Detail(ctx context.Context, actor model.Actor, id string) (*model.ReleaseDetailResponse, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &model.ReleaseDetailResponse{
		Release:            r,
		AllowedTransitions: workflow.AllowedTargets(actor.Role, r.Status),
	}, nil
}

// List returns the releases the actor may see, optionally by status.
func (s *ReleaseService) List(ctx context.Context, actor model.Actor, status string) ([]*model.Release, error) {
	f := store.Filter{}
	if status != "" {
		st, ok := model.ParseReleaseStatus(status)
		if !ok {
			return nil, apperr.InvalidRequest("unknown status %q", status)
		}
		f.Status = string(st)
	}

	switch actor.Role {
	case model.RoleArtist:
		f.ArtistID = actor.UserID
	case model.RoleLabelAdmin:
		if actor.LabelScope == "" {
			return []*model.Release{}, nil
		}
		f.LabelID = actor.LabelScope
	default:
		if !actor.SeesAll() {
			return []*model.Release{}, nil
		}
	}

	releases, err := s.store.ListReleases(ctx, f)
	if err != nil {
		return nil, err
	}
	if releases == nil {
		releases = []*model.Release{}
	}
	return releases, nil
}

// Update applies direct field edits.
func (s *ReleaseService) Update(ctx context.Context, actor model.Actor, id string, req *model.UpdateReleaseRequest) (*model.Release, error) {
	current, err := s.load(ctx, actor, id, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	next, err := workflow.EditRelease(current, actor, req, s.now())
	if err != nil {
		return nil, err
	}
	return s.save(ctx, actor, current, next, model.EventReleaseUpdated, "")
}

// Transition performs a plain status change. A request for the current
// status succeeds without writing.
func (s *ReleaseService) Transition(ctx context.Context, actor model.Actor, id string, req *model.TransitionRequest) (*model.Release, error) {
	current, err := s.load(ctx, actor, id, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	to, ok := model.ParseReleaseStatus(string(req.To))
	if !ok {
		return nil, apperr.InvalidRequest("unknown status %q", req.To)
	}
	next, changed, err := workflow.Transition(current, actor, to, strings.TrimSpace(req.Note), s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return current, nil
	}
	return s.save(ctx, actor, current, next, model.EventReleaseTransitioned, "")
}

// ProposeAmendment opens an amendment with the partner's revision.
func (s *ReleaseService) ProposeAmendment(ctx context.Context, actor model.Actor, id string, req *model.ProposeAmendmentRequest) (*model.Release, error) {
	current, err := s.load(ctx, actor, id, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	proposal := model.Snapshot{TrackListing: req.TrackListing, Credits: req.Credits}
	next, err := workflow.ProposeAmendment(current, actor, proposal, strings.TrimSpace(req.Feedback), s.now())
	if err != nil {
		return nil, err
	}
	return s.save(ctx, actor, current, next, model.EventAmendmentProposed, "")
}

// GetAmendment returns the diff view of the pending amendment.
func (s *ReleaseService) GetAmendment(ctx context.Context, actor model.Actor, id string) (*model.AmendmentResponse, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return workflow.Amendment(r)
}

// ResolveAmendment accepts, rejects or counter-edits the pending amendment.
func (s *ReleaseService) ResolveAmendment(ctx context.Context, actor model.Actor, id string, req *model.ResolveAmendmentRequest) (*model.Release, error) {
	current, err := s.load(ctx, actor, id, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}
	var counter *model.Snapshot
	if req.TrackListing != nil {
		counter = &model.Snapshot{TrackListing: req.TrackListing, Credits: req.Credits}
	}
	next, err := workflow.ResolveAmendment(current, actor, req.Decision, counter, s.now())
	if err != nil {
		return nil, err
	}
	return s.save(ctx, actor, current, next, model.EventAmendmentResolved, req.Decision)
}

// ManifestURL returns a short-lived link to the exported manifest of a live
// release.
func (s *ReleaseService) ManifestURL(ctx context.Context, actor model.Actor, id string) (string, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if s.objects == nil || r.Status != model.StatusLive {
		return "", apperr.NotFound("manifest", id)
	}
	return s.objects.GetSignedURL(ctx, client.ManifestKey(id), ManifestURLExpiry)
}

func (s *ReleaseService) load(ctx context.Context, actor model.Actor, id string, expected int64) (*model.Release, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if expected != 0 && expected != r.Version {
		return nil, apperr.ConcurrentModification("release "+id, expected, r.Version)
	}
	return r, nil
}

func (s *ReleaseService) save(ctx context.Context, actor model.Actor, current, next *model.Release, kind string, decision model.Decision) (*model.Release, error) {
	saved, err := s.store.SaveRelease(ctx, next, current.Version)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, kind, actor, current.Status, saved, decision)
	return saved, nil
}

func (s *ReleaseService) emit(ctx context.Context, kind string, actor model.Actor, from model.ReleaseStatus, r *model.Release, decision model.Decision) {
	if from == "" {
		from = r.Status
	}
	s.notifier.ReleaseEvent(ctx, model.ReleaseEvent{
		Kind:      kind,
		ReleaseID: r.ID,
		ArtistID:  r.ArtistID,
		LabelID:   r.LabelID,
		From:      from,
		To:        r.Status,
		Decision:  decision,
		Role:      actor.Role,
		UserID:    actor.UserID,
		Version:   r.Version,
		At:        r.UpdatedAt,
	})
}
