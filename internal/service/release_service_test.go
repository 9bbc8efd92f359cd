package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/internal/notify"
	"github.com/mscandco/distribution-api/internal/store"
)

var (
	artist  = model.Actor{Role: model.RoleArtist, UserID: "artist-1"}
	other   = model.Actor{Role: model.RoleArtist, UserID: "artist-2"}
	label   = model.Actor{Role: model.RoleLabelAdmin, UserID: "label-admin-1", LabelScope: "label-1"}
	partner = model.Actor{Role: model.RoleDistributionPartner, UserID: "partner-1"}
	company = model.Actor{Role: model.RoleCompanyAdmin, UserID: "company-1"}
)

type signer struct{}

func (signer) PutJSON(_ context.Context, key string, _ any) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

func (signer) GetSignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (signer) Ping(context.Context) error { return nil }

func newReleaseService(t *testing.T) (*ReleaseService, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	svc := NewReleaseService(store.NewMemory(), rec, signer{})
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("release-%d", seq)
	}
	svc.now = func() time.Time { return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC) }
	return svc, rec
}

func completeDraft() *model.CreateReleaseRequest {
	return &model.CreateReleaseRequest{
		ProjectName: "Ocean Waves",
		Artist:      "X",
		ReleaseType: "Single",
		Genre:       "Acoustic",
		TrackListing: []model.Track{
			{Title: "Ocean Waves", Duration: "4:25", ISRC: "USRC1", BPM: "120"},
		},
		Credits: []model.Credit{{Role: "Producer", Name: "X"}},
	}
}

func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func mustCreate(t *testing.T, svc *ReleaseService, actor model.Actor, req *model.CreateReleaseRequest) *model.Release {
	t.Helper()
	r, err := svc.Create(context.Background(), actor, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return r
}

func move(t *testing.T, svc *ReleaseService, actor model.Actor, id string, to model.ReleaseStatus) *model.Release {
	t.Helper()
	r, err := svc.Transition(context.Background(), actor, id, &model.TransitionRequest{To: to})
	if err != nil {
		t.Fatalf("transition to %s: %v", to, err)
	}
	return r
}

func toLive(t *testing.T, svc *ReleaseService) *model.Release {
	t.Helper()
	r := mustCreate(t, svc, artist, completeDraft())
	move(t, svc, artist, r.ID, model.StatusSubmitted)
	move(t, svc, partner, r.ID, model.StatusUnderReview)
	move(t, svc, partner, r.ID, model.StatusCompleted)
	return move(t, svc, partner, r.ID, model.StatusLive)
}

func TestCreateAsArtist(t *testing.T) {
	svc, rec := newReleaseService(t)

	r := mustCreate(t, svc, artist, completeDraft())
	if r.Status != model.StatusDraft || r.Version != 1 {
		t.Errorf("expected draft v1, got %s v%d", r.Status, r.Version)
	}
	if r.ArtistID != "artist-1" || r.LabelID != "" {
		t.Errorf("unexpected ownership %s/%s", r.ArtistID, r.LabelID)
	}
	if kinds := rec.Kinds(); len(kinds) != 1 || kinds[0] != model.EventReleaseCreated {
		t.Errorf("unexpected events %v", kinds)
	}
}

func TestCreateForAnotherArtistForbidden(t *testing.T) {
	svc, _ := newReleaseService(t)
	req := completeDraft()
	req.ArtistID = "artist-2"
	_, err := svc.Create(context.Background(), artist, req)
	assertKind(t, err, apperr.ErrForbidden)
}

func TestCreateAsLabelAdmin(t *testing.T) {
	svc, _ := newReleaseService(t)

	_, err := svc.Create(context.Background(), label, completeDraft())
	assertKind(t, err, apperr.ErrInvalidRequest)

	req := completeDraft()
	req.ArtistID = "artist-3"
	r := mustCreate(t, svc, label, req)
	if r.ArtistID != "artist-3" || r.LabelID != "label-1" {
		t.Errorf("unexpected ownership %s/%s", r.ArtistID, r.LabelID)
	}
}

func TestCreateByPartnerForbidden(t *testing.T) {
	svc, _ := newReleaseService(t)
	_, err := svc.Create(context.Background(), partner, completeDraft())
	assertKind(t, err, apperr.ErrForbidden)
}

func TestGetOutsideScopeIsNotFound(t *testing.T) {
	svc, _ := newReleaseService(t)
	r := mustCreate(t, svc, artist, completeDraft())

	_, err := svc.Get(context.Background(), other, r.ID)
	assertKind(t, err, apperr.ErrNotFound)

	if _, err := svc.Get(context.Background(), company, r.ID); err != nil {
		t.Errorf("company admin should read any release: %v", err)
	}
}

func TestListScopes(t *testing.T) {
	svc, _ := newReleaseService(t)
	ctx := context.Background()

	mustCreate(t, svc, artist, completeDraft())
	mustCreate(t, svc, other, completeDraft())
	req := completeDraft()
	req.ArtistID = "artist-3"
	mustCreate(t, svc, label, req)

	tests := []struct {
		name  string
		actor model.Actor
		want  int
	}{
		{"artist", artist, 1},
		{"label admin", label, 1},
		{"label admin without scope", model.Actor{Role: model.RoleLabelAdmin, UserID: "l2"}, 0},
		{"partner", partner, 3},
		{"company admin", company, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.actor, "")
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d releases, got %d", tt.want, len(got))
			}
		})
	}

	submitted, err := svc.List(ctx, partner, "submitted")
	if err != nil || len(submitted) != 0 {
		t.Errorf("expected no submitted releases, got %d (%v)", len(submitted), err)
	}
	_, err = svc.List(ctx, partner, "archived")
	assertKind(t, err, apperr.ErrInvalidRequest)
}

func TestSubmitIncomplete(t *testing.T) {
	svc, rec := newReleaseService(t)
	req := completeDraft()
	req.TrackListing[0].Title = ""
	r := mustCreate(t, svc, artist, req)

	_, err := svc.Transition(context.Background(), artist, r.ID, &model.TransitionRequest{To: model.StatusSubmitted})
	assertKind(t, err, apperr.ErrIncompleteSubmission)
	e, _ := apperr.As(err)
	if fields := e.Fields(); len(fields) != 1 || fields[0] != "trackListing[0].title" {
		t.Errorf("unexpected violations %v", fields)
	}

	got, _ := svc.Get(context.Background(), artist, r.ID)
	if got.Status != model.StatusDraft || got.Version != 1 {
		t.Errorf("failed submit must not write, got %s v%d", got.Status, got.Version)
	}
	if len(rec.Releases()) != 1 {
		t.Errorf("failed submit must not notify, got %v", rec.Kinds())
	}
}

func TestTransitionNormalizesStatus(t *testing.T) {
	svc, _ := newReleaseService(t)
	r := mustCreate(t, svc, artist, completeDraft())
	got := move(t, svc, artist, r.ID, "  SUBMITTED ")
	if got.Status != model.StatusSubmitted {
		t.Errorf("expected submitted, got %s", got.Status)
	}
}

func TestTransitionToUnknownStatus(t *testing.T) {
	svc, rec := newReleaseService(t)
	r := mustCreate(t, svc, artist, completeDraft())
	move(t, svc, artist, r.ID, model.StatusSubmitted)
	move(t, svc, partner, r.ID, model.StatusUnderReview)

	_, err := svc.Transition(context.Background(), partner, r.ID, &model.TransitionRequest{To: "bogus"})
	assertKind(t, err, apperr.ErrInvalidRequest)
	if errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("unknown status should not read as a transition error: %v", err)
	}
	if n := len(rec.Releases()); n != 3 {
		t.Errorf("rejected request must not emit, got %v", rec.Kinds())
	}
}

func TestDetailListsCallerTransitions(t *testing.T) {
	svc, _ := newReleaseService(t)
	r := mustCreate(t, svc, artist, completeDraft())
	move(t, svc, artist, r.ID, model.StatusSubmitted)

	tests := []struct {
		actor model.Actor
		want  []model.ReleaseStatus
	}{
		{artist, []model.ReleaseStatus{model.StatusDraft}},
		{partner, []model.ReleaseStatus{model.StatusUnderReview}},
		{company, []model.ReleaseStatus{}},
	}
	for _, tt := range tests {
		d, err := svc.Detail(context.Background(), tt.actor, r.ID)
		if err != nil {
			t.Fatalf("%s detail: %v", tt.actor.Role, err)
		}
		if d.Release.ID != r.ID || fmt.Sprint(d.AllowedTransitions) != fmt.Sprint(tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.actor.Role, tt.want, d.AllowedTransitions)
		}
	}

	_, err := svc.Detail(context.Background(), other, r.ID)
	assertKind(t, err, apperr.ErrNotFound)
}

func TestRepeatedTransitionDoesNotWrite(t *testing.T) {
	svc, rec := newReleaseService(t)
	r := mustCreate(t, svc, artist, completeDraft())

	first := move(t, svc, artist, r.ID, model.StatusSubmitted)
	second := move(t, svc, artist, r.ID, model.StatusSubmitted)
	if first.Version != 2 || second.Version != 2 {
		t.Errorf("expected version 2 twice, got %d and %d", first.Version, second.Version)
	}
	if n := len(rec.Releases()); n != 2 {
		t.Errorf("expected created+transitioned events, got %v", rec.Kinds())
	}
}

func TestStaleExpectedVersion(t *testing.T) {
	svc, _ := newReleaseService(t)
	r := mustCreate(t, svc, artist, completeDraft())
	move(t, svc, artist, r.ID, model.StatusSubmitted)

	_, err := svc.Transition(context.Background(), artist, r.ID, &model.TransitionRequest{
		To:              model.StatusDraft,
		ExpectedVersion: 1,
	})
	assertKind(t, err, apperr.ErrConcurrentModification)
}

func TestConcurrentTransitionsOneWins(t *testing.T) {
	svc, _ := newReleaseService(t)
	r := mustCreate(t, svc, artist, completeDraft())
	move(t, svc, artist, r.ID, model.StatusSubmitted)
	current := move(t, svc, partner, r.ID, model.StatusUnderReview)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(context.Background(), partner, r.ID, &model.TransitionRequest{
				To:              model.StatusCompleted,
				ExpectedVersion: current.Version,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperr.ErrConcurrentModification):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
	final, _ := svc.Get(context.Background(), partner, r.ID)
	if final.Version != current.Version+1 {
		t.Errorf("expected one write, version went %d -> %d", current.Version, final.Version)
	}
}

func TestUpdateDraft(t *testing.T) {
	svc, rec := newReleaseService(t)
	r := mustCreate(t, svc, artist, completeDraft())

	name := "Ocean Waves (Deluxe)"
	got, err := svc.Update(context.Background(), artist, r.ID, &model.UpdateReleaseRequest{ProjectName: &name})
	if err != nil {
		t.Fatal(err)
	}
	if got.ProjectName != name || got.Version != 2 {
		t.Errorf("unexpected update result %q v%d", got.ProjectName, got.Version)
	}
	kinds := rec.Kinds()
	if kinds[len(kinds)-1] != model.EventReleaseUpdated {
		t.Errorf("expected update event, got %v", kinds)
	}
}

func TestAmendmentAcceptedReturnsToLive(t *testing.T) {
	svc, rec := newReleaseService(t)
	ctx := context.Background()
	live := toLive(t, svc)

	tracks := append([]model.Track(nil), live.TrackListing...)
	tracks[0].BPM = "128"
	proposed, err := svc.ProposeAmendment(ctx, partner, live.ID, &model.ProposeAmendmentRequest{
		TrackListing: tracks,
		Feedback:     "tempo fix",
	})
	if err != nil {
		t.Fatal(err)
	}
	if proposed.Status != model.StatusApprovalRequired {
		t.Fatalf("expected approval_required, got %s", proposed.Status)
	}
	if proposed.TrackListing[0].BPM != "120" {
		t.Errorf("live fields must not change before acceptance")
	}

	view, err := svc.GetAmendment(ctx, artist, live.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.ReturnStatus != model.StatusLive {
		t.Errorf("expected return to live, got %s", view.ReturnStatus)
	}
	changed := 0
	for _, d := range view.Deltas {
		if d.Changed {
			changed++
			if d.Field != model.TrackFieldBPM || d.OriginalValue != "120" || d.ProposedValue != "128" {
				t.Errorf("unexpected delta %+v", d)
			}
		}
	}
	if changed != 1 {
		t.Errorf("expected one changed field, got %d", changed)
	}

	_, err = svc.ProposeAmendment(ctx, partner, live.ID, &model.ProposeAmendmentRequest{TrackListing: tracks})
	assertKind(t, err, apperr.ErrAmendmentInProgress)

	accepted, err := svc.ResolveAmendment(ctx, artist, live.ID, &model.ResolveAmendmentRequest{Decision: model.DecisionAccept})
	if err != nil {
		t.Fatal(err)
	}
	if accepted.Status != model.StatusLive || accepted.TrackListing[0].BPM != "128" {
		t.Errorf("expected live with bpm 128, got %s/%s", accepted.Status, accepted.TrackListing[0].BPM)
	}
	if accepted.HasPendingAmendment() {
		t.Error("snapshots should be cleared")
	}

	events := rec.Releases()
	last := events[len(events)-1]
	if last.Kind != model.EventAmendmentResolved || last.Decision != model.DecisionAccept {
		t.Errorf("unexpected last event %+v", last)
	}
	if last.From != model.StatusApprovalRequired || last.To != model.StatusLive {
		t.Errorf("unexpected event edge %s -> %s", last.From, last.To)
	}
}

func TestResolveWithoutAmendment(t *testing.T) {
	svc, _ := newReleaseService(t)
	live := toLive(t, svc)
	_, err := svc.ResolveAmendment(context.Background(), artist, live.ID, &model.ResolveAmendmentRequest{Decision: model.DecisionAccept})
	assertKind(t, err, apperr.ErrNoAmendmentPending)
}

func TestManifestURL(t *testing.T) {
	svc, _ := newReleaseService(t)
	ctx := context.Background()

	draft := mustCreate(t, svc, artist, completeDraft())
	_, err := svc.ManifestURL(ctx, artist, draft.ID)
	assertKind(t, err, apperr.ErrNotFound)

	live := toLive(t, svc)
	url, err := svc.ManifestURL(ctx, artist, live.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(url, "releases/"+live.ID+"/manifest.json") {
		t.Errorf("unexpected url %s", url)
	}

	svc.objects = nil
	_, err = svc.ManifestURL(ctx, artist, live.ID)
	assertKind(t, err, apperr.ErrNotFound)
}
