package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/internal/notify"
	"github.com/mscandco/distribution-api/internal/store"
	"github.com/mscandco/distribution-api/internal/workflow"
)

// ReportStore is the persistence the report service needs.
type ReportStore interface {
	GetReport(ctx context.Context, id string) (*model.RevenueReport, error)
	ListReports(ctx context.Context, f store.Filter) ([]*model.RevenueReport, error)
	SaveReport(ctx context.Context, r *model.RevenueReport, expected int64) (*model.RevenueReport, error)
}

// ReportService runs the revenue report approval pipeline
type ReportService struct {
	store    ReportStore
	notifier notify.Notifier
	now      func() time.Time
	newID    func() string
}

func NewReportService(s ReportStore, notifier notify.Notifier) *ReportService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ReportService{
		store:    s,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// Submit files a new pending report.
func (s *ReportService) Submit(ctx context.Context, actor model.Actor, req *model.SubmitReportRequest) (*model.RevenueReport, error) {
	if !workflow.CanSubmitReports(actor.Role) {
		return nil, apperr.Forbidden(string(actor.Role), "submit revenue reports")
	}

	now := s.now()
	r := &model.RevenueReport{
		ID:          s.newID(),
		ArtistID:    req.ArtistID,
		LabelID:     req.LabelID,
		Period:      strings.TrimSpace(req.Period),
		Amount:      req.Amount,
		Currency:    strings.ToUpper(req.Currency),
		Status:      model.ReportStatusPending,
		SubmittedBy: actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	saved, err := s.store.SaveReport(ctx, r, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}
	s.emit(ctx, model.EventReportSubmitted, actor, saved)
	return saved, nil
}

// Approve marks a pending report approved.
func (s *ReportService) Approve(ctx context.Context, actor model.Actor, id string, expected int64) (*model.RevenueReport, error) {
	return s.review(ctx, actor, id, model.ReviewApprove, "", expected)
}

// Reject marks a pending report rejected. A reason is required.
func (s *ReportService) Reject(ctx context.Context, actor model.Actor, id, reason string, expected int64) (*model.RevenueReport, error) {
	return s.review(ctx, actor, id, model.ReviewReject, reason, expected)
}

// Get returns a report within the actor's scope.
func (s *ReportService) Get(ctx context.Context, actor model.Actor, id string) (*model.RevenueReport, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessReport(r) {
		return nil, apperr.NotFound("report", id)
	}
	return r, nil
}

// List returns the reports the actor may see, optionally by status.
func (s *ReportService) List(ctx context.Context, actor model.Actor, status string) ([]*model.RevenueReport, error) {
	f := store.Filter{Status: status}
	switch model.ReportStatus(status) {
	case "", model.ReportStatusPending, model.ReportStatusApproved, model.ReportStatusRejected:
	default:
		return nil, apperr.InvalidRequest("unknown report status %q", status)
	}

	switch actor.Role {
	case model.RoleArtist:
		f.ArtistID = actor.UserID
	case model.RoleLabelAdmin:
		if actor.LabelScope == "" {
			return []*model.RevenueReport{}, nil
		}
		f.LabelID = actor.LabelScope
	default:
		if !actor.SeesAll() {
			return []*model.RevenueReport{}, nil
		}
	}

	reports, err := s.store.ListReports(ctx, f)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []*model.RevenueReport{}
	}
	return reports, nil
}

func (s *ReportService) review(ctx context.Context, actor model.Actor, id string, decision model.ReviewDecision, reason string, expected int64) (*model.RevenueReport, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if expected != 0 && expected != current.Version {
		return nil, apperr.ConcurrentModification("report "+id, expected, current.Version)
	}

	next, changed, err := workflow.ReviewReport(current, actor, decision, reason, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return current, nil
	}

	saved, err := s.store.SaveReport(ctx, next, current.Version)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventReportReviewed, actor, saved)
	return saved, nil
}

func (s *ReportService) emit(ctx context.Context, kind string, actor model.Actor, r *model.RevenueReport) {
	s.notifier.ReportEvent(ctx, model.ReportEvent{
		Kind:     kind,
		ReportID: r.ID,
		ArtistID: r.ArtistID,
		Status:   r.Status,
		Reason:   r.Reason,
		UserID:   actor.UserID,
		Version:  r.Version,
		At:       r.UpdatedAt,
	})
}
