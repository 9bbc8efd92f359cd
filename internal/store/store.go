// Package store persists releases, revenue reports and change requests with version-checked
// writes. Every save names the version it was read at; a mismatch is reported
// as apperr.ErrConcurrentModification and nothing is written.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
)

const (
	kindRelease       = "release"
	kindReport        = "report"
	kindChangeRequest = "change_request"
)

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Status   string
	ArtistID string
	LabelID  string
}

func (f Filter) matches(d *document) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.ArtistID != "" && d.ArtistID != f.ArtistID {
		return false
	}
	if f.LabelID != "" && d.LabelID != f.LabelID {
		return false
	}
	return true
}

// document is the storage shape shared by every backend: the indexed
// columns plus the JSON body.
type document struct {
	Kind      string
	ID        string
	Status    string
	ArtistID  string
	LabelID   string
	Version   int64
	CreatedAt time.Time
	Data      []byte
}

// backend is implemented by each storage driver. put creates the document
// when expected == 0 and otherwise replaces it only if the stored version
// equals expected.
type backend interface {
	get(ctx context.Context, kind, id string) (*document, error)
	list(ctx context.Context, kind string, f Filter) ([]*document, error)
	put(ctx context.Context, d *document, expected int64) error
	ping(ctx context.Context) error
	close() error
}

// Store is the typed facade over a backend.
type Store struct {
	b      backend
	driver string
}

// Driver names the backend in use.
func (s *Store) Driver() string {
	return s.driver
}

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.b.ping(ctx)
}

// Close releases the backend's resources.
func (s *Store) Close() error {
	return s.b.close()
}

// GetRelease loads a release by ID.
func (s *Store) GetRelease(ctx context.Context, id string) (*model.Release, error) {
	var r model.Release
	if err := s.load(ctx, kindRelease, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReleases returns releases matching f, oldest first.
func (s *Store) ListReleases(ctx context.Context, f Filter) ([]*model.Release, error) {
	docs, err := s.b.list(ctx, kindRelease, f)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	out := make([]*model.Release, 0, len(docs))
	for _, d := range docs {
		var r model.Release
		if err := json.Unmarshal(d.Data, &r); err != nil {
			return nil, fmt.Errorf("decode release %s: %w", d.ID, err)
		}
		r.Version = d.Version
		out = append(out, &r)
	}
	return out, nil
}

// SaveRelease writes r at version expected+1. expected == 0 creates.
func (s *Store) SaveRelease(ctx context.Context, r *model.Release, expected int64) (*model.Release, error) {
	saved := r.Clone()
	saved.Version = expected + 1
	d, err := encode(kindRelease, saved.ID, string(saved.Status), saved.ArtistID, saved.LabelID, saved.Version, saved.CreatedAt, saved)
	if err != nil {
		return nil, err
	}
	if err := s.b.put(ctx, d, expected); err != nil {
		return nil, err
	}
	return saved, nil
}

// GetReport loads a revenue report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*model.RevenueReport, error) {
	var r model.RevenueReport
	if err := s.load(ctx, kindReport, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReports returns reports matching f, oldest first.
func (s *Store) ListReports(ctx context.Context, f Filter) ([]*model.RevenueReport, error) {
	docs, err := s.b.list(ctx, kindReport, f)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	out := make([]*model.RevenueReport, 0, len(docs))
	for _, d := range docs {
		var r model.RevenueReport
		if err := json.Unmarshal(d.Data, &r); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", d.ID, err)
		}
		r.Version = d.Version
		out = append(out, &r)
	}
	return out, nil
}

// SaveReport writes r at version expected+1. expected == 0 creates.
func (s *Store) SaveReport(ctx context.Context, r *model.RevenueReport, expected int64) (*model.RevenueReport, error) {
	saved := r.Clone()
	saved.Version = expected + 1
	d, err := encode(kindReport, saved.ID, string(saved.Status), saved.ArtistID, saved.LabelID, saved.Version, saved.CreatedAt, saved)
	if err != nil {
		return nil, err
	}
	if err := s.b.put(ctx, d, expected); err != nil {
		return nil, err
	}
	return saved, nil
}

// GetChangeRequest loads a change request by ID.
func (s *Store) GetChangeRequest(ctx context.Context, id string) (*model.ChangeRequest, error) {
	var cr model.ChangeRequest
	if err := s.load(ctx, kindChangeRequest, id, &cr); err != nil {
		return nil, err
	}
	return &cr, nil
}

// ListChangeRequests returns the change requests filed against releaseID
// that match f, oldest first.
func (s *Store) ListChangeRequests(ctx context.Context, releaseID string, f Filter) ([]*model.ChangeRequest, error) {
	docs, err := s.b.list(ctx, kindChangeRequest, f)
	if err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	out := make([]*model.ChangeRequest, 0, len(docs))
	for _, d := range docs {
		var cr model.ChangeRequest
		if err := json.Unmarshal(d.Data, &cr); err != nil {
			return nil, fmt.Errorf("decode change request %s: %w", d.ID, err)
		}
		if cr.ReleaseID != releaseID {
			continue
		}
		cr.Version = d.Version
		out = append(out, &cr)
	}
	return out, nil
}

// SaveChangeRequest writes cr at version expected+1. expected == 0 creates.
func (s *Store) SaveChangeRequest(ctx context.Context, cr *model.ChangeRequest, expected int64) (*model.ChangeRequest, error) {
	saved := cr.Clone()
	saved.Version = expected + 1
	d, err := encode(kindChangeRequest, saved.ID, string(saved.Status), saved.ArtistID, saved.LabelID, saved.Version, saved.CreatedAt, saved)
	if err != nil {
		return nil, err
	}
	if err := s.b.put(ctx, d, expected); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) load(ctx context.Context, kind, id string, into any) error {
	d, err := s.b.get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(d.Data, into); err != nil {
		return fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return nil
}

func encode(kind, id, status, artistID, labelID string, version int64, createdAt time.Time, v any) (*document, error) {
	if id == "" {
		return nil, apperr.InvalidRequest("%s has no id", kind)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", kind, id, err)
	}
	return &document{
		Kind:      kind,
		ID:        id,
		Status:    status,
		ArtistID:  artistID,
		LabelID:   labelID,
		Version:   version,
		CreatedAt: createdAt.UTC(),
		Data:      data,
	}, nil
}

// conflict builds the error for a failed version check. actual == 0 on an
// update means the document does not exist.
func conflict(d *document, expected, actual int64) error {
	if expected > 0 && actual == 0 {
		return apperr.NotFound(d.Kind, d.ID)
	}
	return apperr.ConcurrentModification(d.Kind+" "+d.ID, expected, actual)
}

func sortDocuments(docs []*document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}
