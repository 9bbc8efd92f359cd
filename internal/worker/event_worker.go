package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mscandco/distribution-api/internal/client"
	"github.com/mscandco/distribution-api/internal/model"
)

// Broadcaster pushes events to live subscribers.
type Broadcaster interface {
	BroadcastReleaseEvent(e model.ReleaseEvent)
	BroadcastReportEvent(e model.ReportEvent)
	BroadcastError(releaseID string, code, message string)
}

// ReleaseReader loads the release an event refers to.
type ReleaseReader interface {
	GetRelease(ctx context.Context, id string) (*model.Release, error)
}

// EventWorker consumes release and report events
type EventWorker struct {
	releases ReleaseReader
	objects  client.ObjectStore
	hub      Broadcaster
	now      func() time.Time
}

// NewEventWorker creates an event worker. objects may be nil, in which case
// no manifest is exported.
func NewEventWorker(releases ReleaseReader, objects client.ObjectStore, hub Broadcaster) *EventWorker {
	return &EventWorker{
		releases: releases,
		objects:  objects,
		hub:      hub,
		now:      time.Now,
	}
}

// ProcessReleaseTask handles release:event tasks
func (w *EventWorker) ProcessReleaseTask(ctx context.Context, t *asynq.Task) error {
	var e model.ReleaseEvent
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("failed to unmarshal release event: %w: %w", err, asynq.SkipRetry)
	}
	return w.HandleReleaseEvent(ctx, e)
}

// ProcessReportTask handles report:event tasks
func (w *EventWorker) ProcessReportTask(ctx context.Context, t *asynq.Task) error {
	var e model.ReportEvent
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("failed to unmarshal report event: %w: %w", err, asynq.SkipRetry)
	}
	return w.HandleReportEvent(ctx, e)
}

// HandleReleaseEvent broadcasts the event and exports the manifest when the
// release has just reached live or a live release was edited.
func (w *EventWorker) HandleReleaseEvent(ctx context.Context, e model.ReleaseEvent) error {
	log.Printf("Release %s: %s (%s -> %s, v%d)", e.ReleaseID, e.Kind, e.From, e.To, e.Version)
	if w.hub != nil {
		w.hub.BroadcastReleaseEvent(e)
	}

	if !exportsManifest(e) || w.objects == nil {
		return nil
	}
	if err := w.exportManifest(ctx, e); err != nil {
		if w.hub != nil {
			w.hub.BroadcastError(e.ReleaseID, "EXPORT_FAILED", "Release manifest export failed")
		}
		return err
	}
	return nil
}

func exportsManifest(e model.ReleaseEvent) bool {
	if e.To != model.StatusLive {
		return false
	}
	return e.From != model.StatusLive || e.Kind == model.EventReleaseUpdated
}

// HandleReportEvent broadcasts the event
func (w *EventWorker) HandleReportEvent(_ context.Context, e model.ReportEvent) error {
	log.Printf("Report %s: %s (%s, v%d)", e.ReportID, e.Kind, e.Status, e.Version)
	if w.hub != nil {
		w.hub.BroadcastReportEvent(e)
	}
	return nil
}

func (w *EventWorker) exportManifest(ctx context.Context, e model.ReleaseEvent) error {
	r, err := w.releases.GetRelease(ctx, e.ReleaseID)
	if err != nil {
		return fmt.Errorf("load release %s: %w", e.ReleaseID, err)
	}
	// A later write may have moved the release on; the manifest follows
	// whatever is stored now, provided it is still live.
	if r.Status != model.StatusLive {
		log.Printf("Release %s is %s, skipping manifest export", r.ID, r.Status)
		return nil
	}

	manifest := model.ReleaseManifest{
		ReleaseID:           r.ID,
		Version:             r.Version,
		ProjectName:         r.ProjectName,
		Artist:              r.Artist,
		ReleaseType:         r.ReleaseType,
		Genre:               r.Genre,
		ExpectedReleaseDate: r.ExpectedReleaseDate,
		TrackListing:        r.TrackListing,
		Credits:             r.Credits,
		ExportedAt:          w.now().UTC(),
	}
	url, err := w.objects.PutJSON(ctx, client.ManifestKey(r.ID), manifest)
	if err != nil {
		return fmt.Errorf("export manifest for %s: %w", r.ID, err)
	}
	log.Printf("Release %s manifest v%d exported to %s", r.ID, r.Version, url)
	return nil
}
