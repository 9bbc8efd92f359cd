package workflow

import (
	"reflect"
	"testing"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
)

func urbanBeat(t *testing.T) *model.Release {
	t.Helper()
	r := oceanWaves()
	r.ProjectName = "Urban Beat"
	r.TrackListing = []model.Track{{Title: "Urban Beat", Duration: "3:10", ISRC: "USRC2", BPM: "120", SongKey: "Am"}}
	next, _, err := Transition(r, artist, model.StatusSubmitted, "", testNow)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	next, _, err = Transition(next, partner, model.StatusUnderReview, "", testNow)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	return next
}

func bpmProposal(r *model.Release, bpm string) model.Snapshot {
	s := r.Snapshot()
	s.TrackListing[0].BPM = bpm
	return s
}

func TestProposeAmendment(t *testing.T) {
	r := urbanBeat(t)

	next, err := ProposeAmendment(r, partner, bpmProposal(r, "128"), "tempo is off", testNow)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if next.Status != model.StatusApprovalRequired {
		t.Errorf("expected approval_required, got %s", next.Status)
	}
	assertSnapshotInvariant(t, next)
	if next.OriginalData.TrackListing[0].BPM != "120" {
		t.Errorf("original snapshot lost bpm: %+v", next.OriginalData)
	}
	if next.TrackListing[0].BPM != "120" {
		t.Error("live fields must not change until the amendment is accepted")
	}
	if next.ProposedBy != model.RoleDistributionPartner {
		t.Errorf("expected proposedBy partner, got %s", next.ProposedBy)
	}
	if next.Feedback != "tempo is off" {
		t.Errorf("expected feedback to be recorded, got %q", next.Feedback)
	}
	if from, _ := next.AmendedFrom(); from != model.StatusUnderReview {
		t.Errorf("expected amended from under_review, got %s", from)
	}
}

func TestAmendmentDiffSingleChange(t *testing.T) {
	r := urbanBeat(t)
	next, err := ProposeAmendment(r, partner, bpmProposal(r, "128"), "", testNow)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	view, err := Amendment(next)
	if err != nil {
		t.Fatalf("amendment view: %v", err)
	}
	if len(view.Deltas) != len(model.DiffTrackFields) {
		t.Errorf("expected %d deltas, got %d", len(model.DiffTrackFields), len(view.Deltas))
	}
	changed := Changed(view.Deltas)
	want := []model.FieldDelta{{TrackIndex: 0, Field: model.TrackFieldBPM, OriginalValue: "120", ProposedValue: "128", Changed: true}}
	if !reflect.DeepEqual(changed, want) {
		t.Errorf("expected %+v, got %+v", want, changed)
	}
	if view.CreditsChanged {
		t.Error("credits were carried over and should be unchanged")
	}
	if view.ReturnStatus != model.StatusUnderReview {
		t.Errorf("expected return status under_review, got %s", view.ReturnStatus)
	}
}

func TestDiffUnequalLengths(t *testing.T) {
	original := model.Snapshot{TrackListing: []model.Track{{Title: "A", Duration: "1:00", ISRC: "X"}}}
	proposed := model.Snapshot{TrackListing: []model.Track{
		{Title: "A", Duration: "1:00", ISRC: "X"},
		{Title: "B", Duration: "2:00", ISRC: "Y"},
	}}
	changed := Changed(Diff(original, proposed))
	if len(changed) != 3 {
		t.Fatalf("expected 3 changed fields on the added track, got %+v", changed)
	}
	for _, d := range changed {
		if d.TrackIndex != 1 || d.OriginalValue != "" {
			t.Errorf("unexpected delta %+v", d)
		}
	}
}

func TestDiffIsCaseSensitive(t *testing.T) {
	original := model.Snapshot{TrackListing: []model.Track{{SongKey: "am"}}}
	proposed := model.Snapshot{TrackListing: []model.Track{{SongKey: "Am"}}}
	if len(Changed(Diff(original, proposed))) != 1 {
		t.Error("expected case change to count as a change")
	}
}

func TestCreditsChanged(t *testing.T) {
	a := []model.Credit{{Role: "Producer", Name: "X"}, {Role: "Mixer", Name: "Y"}}
	reordered := []model.Credit{{Role: "Mixer", Name: "Y"}, {Role: "Producer", Name: "X"}}
	if CreditsChanged(a, reordered) {
		t.Error("reordering credits is not a change")
	}
	if !CreditsChanged(a, a[:1]) {
		t.Error("dropping a credit is a change")
	}
	dup := []model.Credit{{Role: "Producer", Name: "X"}, {Role: "Producer", Name: "X"}}
	if !CreditsChanged(a, dup) {
		t.Error("duplicate credit replacing another is a change")
	}
}

func TestProposeWhileAmendmentPending(t *testing.T) {
	r := urbanBeat(t)
	pending, err := ProposeAmendment(r, partner, bpmProposal(r, "128"), "", testNow)
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	_, err = ProposeAmendment(pending, partner, bpmProposal(r, "140"), "", testNow)
	assertKind(t, err, apperr.ErrAmendmentInProgress)
	if pending.ProposedChanges.TrackListing[0].BPM != "128" {
		t.Error("pending proposal was altered by the rejected second proposal")
	}
}

func TestProposeFromNonAmendableStatus(t *testing.T) {
	for _, status := range []model.ReleaseStatus{model.StatusDraft, model.StatusSubmitted} {
		r := atStatus(t, status)
		_, err := ProposeAmendment(r, partner, r.Snapshot(), "", testNow)
		assertKind(t, err, apperr.ErrInvalidTransition)
	}
}

func TestProposeByNonPartner(t *testing.T) {
	r := urbanBeat(t)
	for _, actor := range []model.Actor{artist, label, company} {
		_, err := ProposeAmendment(r, actor, bpmProposal(r, "128"), "", testNow)
		assertKind(t, err, apperr.ErrForbidden)
	}
}

func TestProposeIncompleteTracks(t *testing.T) {
	r := urbanBeat(t)
	s := r.Snapshot()
	s.TrackListing[0].ISRC = ""
	_, err := ProposeAmendment(r, partner, s, "", testNow)
	assertKind(t, err, apperr.ErrIncompleteSubmission)
}

func TestAmendmentViewWithoutPending(t *testing.T) {
	_, err := Amendment(urbanBeat(t))
	assertKind(t, err, apperr.ErrNoAmendmentPending)
}
