package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mscandco/distribution-api/internal/model"
)

type chanHandler struct {
	releases chan model.ReleaseEvent
	reports  chan model.ReportEvent
	err      error
}

func (h *chanHandler) HandleReleaseEvent(_ context.Context, e model.ReleaseEvent) error {
	h.releases <- e
	return h.err
}

func (h *chanHandler) HandleReportEvent(_ context.Context, e model.ReportEvent) error {
	h.reports <- e
	return h.err
}

func TestInlineDeliversInBackground(t *testing.T) {
	h := &chanHandler{releases: make(chan model.ReleaseEvent, 1), reports: make(chan model.ReportEvent, 1)}
	n := NewInline(h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // a finished request must not stop delivery

	n.ReleaseEvent(ctx, model.ReleaseEvent{Kind: model.EventReleaseTransitioned, ReleaseID: "r1"})
	n.ReportEvent(ctx, model.ReportEvent{Kind: model.EventReportSubmitted, ReportID: "p1"})

	select {
	case e := <-h.releases:
		if e.ReleaseID != "r1" {
			t.Errorf("unexpected release event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("release event not delivered")
	}
	select {
	case e := <-h.reports:
		if e.ReportID != "p1" {
			t.Errorf("unexpected report event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("report event not delivered")
	}
}

func TestInlineSwallowsHandlerErrors(t *testing.T) {
	h := &chanHandler{releases: make(chan model.ReleaseEvent, 1), err: errors.New("bucket unavailable")}
	NewInline(h).ReleaseEvent(context.Background(), model.ReleaseEvent{ReleaseID: "r1"})

	select {
	case <-h.releases:
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestReleaseEventTask(t *testing.T) {
	task, err := NewReleaseEventTask(model.ReleaseEvent{Kind: model.EventReleaseCreated, ReleaseID: "r1", Version: 1})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if task.Type() != TaskTypeReleaseEvent {
		t.Errorf("expected %s, got %s", TaskTypeReleaseEvent, task.Type())
	}
	var e model.ReleaseEvent
	if err := json.Unmarshal(task.Payload(), &e); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if e.ReleaseID != "r1" || e.Version != 1 {
		t.Errorf("unexpected payload %+v", e)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.ReleaseEvent(context.Background(), model.ReleaseEvent{Kind: model.EventReleaseCreated})
	r.ReleaseEvent(context.Background(), model.ReleaseEvent{Kind: model.EventReleaseTransitioned})
	r.ReportEvent(context.Background(), model.ReportEvent{Kind: model.EventReportSubmitted})

	kinds := r.Kinds()
	if len(kinds) != 2 || kinds[1] != model.EventReleaseTransitioned {
		t.Errorf("unexpected kinds %v", kinds)
	}
	if len(r.Reports()) != 1 {
		t.Errorf("expected 1 report event, got %d", len(r.Reports()))
	}
}
