package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
)

var (
	testNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	artist  = model.Actor{Role: model.RoleArtist, UserID: "artist-1"}
	label   = model.Actor{Role: model.RoleLabelAdmin, UserID: "label-admin-1", LabelScope: "label-1"}
	partner = model.Actor{Role: model.RoleDistributionPartner, UserID: "partner-1"}
	company = model.Actor{Role: model.RoleCompanyAdmin, UserID: "company-1"}
	super   = model.Actor{Role: model.RoleSuperAdmin, UserID: "super-1"}
)

// oceanWaves returns a complete draft release.
func oceanWaves() *model.Release {
	return &model.Release{
		ID:          "release-1",
		Status:      model.StatusDraft,
		ArtistID:    "artist-1",
		LabelID:     "label-1",
		ProjectName: "Ocean Waves",
		Artist:      "X",
		ReleaseType: "Single",
		Genre:       "Acoustic",
		TrackListing: []model.Track{
			{Title: "Ocean Waves", Duration: "4:25", ISRC: "USRC1"},
		},
		Credits: []model.Credit{{Role: "Producer", Name: "X"}},
		Version: 1,
	}
}

// atStatus walks a fresh release to status through the legal path.
func atStatus(t *testing.T, status model.ReleaseStatus) *model.Release {
	t.Helper()
	r := oceanWaves()
	path := map[model.ReleaseStatus][]struct {
		to    model.ReleaseStatus
		actor model.Actor
	}{
		model.StatusDraft:       {},
		model.StatusSubmitted:   {{model.StatusSubmitted, artist}},
		model.StatusUnderReview: {{model.StatusSubmitted, artist}, {model.StatusUnderReview, partner}},
		model.StatusCompleted:   {{model.StatusSubmitted, artist}, {model.StatusUnderReview, partner}, {model.StatusCompleted, partner}},
		model.StatusLive:        {{model.StatusSubmitted, artist}, {model.StatusUnderReview, partner}, {model.StatusCompleted, partner}, {model.StatusLive, partner}},
	}
	steps, ok := path[status]
	if !ok {
		t.Fatalf("no path to %s", status)
	}
	for _, step := range steps {
		next, _, err := Transition(r, step.actor, step.to, "", testNow)
		if err != nil {
			t.Fatalf("walk to %s: %v", step.to, err)
		}
		r = next
	}
	return r
}

func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func assertSnapshotInvariant(t *testing.T, r *model.Release) {
	t.Helper()
	pending := r.OriginalData != nil && r.ProposedChanges != nil
	neither := r.OriginalData == nil && r.ProposedChanges == nil
	if r.Status == model.StatusApprovalRequired && !pending {
		t.Fatalf("approval_required without both snapshots: %+v", r)
	}
	if r.Status != model.StatusApprovalRequired && !neither {
		t.Fatalf("%s with amendment snapshots present", r.Status)
	}
}

func typed(t *testing.T, err error) *apperr.Error {
	t.Helper()
	e, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	return e
}
