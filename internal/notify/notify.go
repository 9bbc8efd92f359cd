// Package notify delivers release and report events after they are saved.
// Delivery is fire-and-forget: a failure is logged and never reaches the
// caller that triggered the event.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mscandco/distribution-api/internal/model"
)

const (
	TaskTypeReleaseEvent = "release:event"
	TaskTypeReportEvent  = "report:event"
)

// Notifier receives events after a successful save.
type Notifier interface {
	ReleaseEvent(ctx context.Context, e model.ReleaseEvent)
	ReportEvent(ctx context.Context, e model.ReportEvent)
}

// Handler consumes events, either from the task queue or inline.
type Handler interface {
	HandleReleaseEvent(ctx context.Context, e model.ReleaseEvent) error
	HandleReportEvent(ctx context.Context, e model.ReportEvent) error
}

// NewReleaseEventTask wraps a release event as an asynq task.
func NewReleaseEventTask(e model.ReleaseEvent) (*asynq.Task, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReleaseEvent, data), nil
}

// NewReportEventTask wraps a report event as an asynq task.
func NewReportEventTask(e model.ReportEvent) (*asynq.Task, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReportEvent, data), nil
}

// AsynqNotifier enqueues events for the worker server.
type AsynqNotifier struct {
	client   *asynq.Client
	queue    string
	maxRetry int
}

func NewAsynqNotifier(client *asynq.Client, queue string, maxRetry int) *AsynqNotifier {
	return &AsynqNotifier{client: client, queue: queue, maxRetry: maxRetry}
}

func (n *AsynqNotifier) ReleaseEvent(ctx context.Context, e model.ReleaseEvent) {
	task, err := NewReleaseEventTask(e)
	n.enqueue(ctx, task, err, e.Kind, e.ReleaseID)
}

func (n *AsynqNotifier) ReportEvent(ctx context.Context, e model.ReportEvent) {
	task, err := NewReportEventTask(e)
	n.enqueue(ctx, task, err, e.Kind, e.ReportID)
}

func (n *AsynqNotifier) enqueue(ctx context.Context, task *asynq.Task, err error, kind, id string) {
	if err != nil {
		log.Printf("Warning: failed to build %s task for %s: %v", kind, id, err)
		return
	}
	_, err = n.client.EnqueueContext(ctx, task,
		asynq.Queue(n.queue),
		asynq.MaxRetry(n.maxRetry),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		log.Printf("Warning: failed to enqueue %s for %s: %v", kind, id, err)
	}
}

// Inline hands events to a Handler on a background goroutine. Used when the
// task queue is disabled.
type Inline struct {
	handler Handler
	timeout time.Duration
}

func NewInline(handler Handler) *Inline {
	return &Inline{handler: handler, timeout: 30 * time.Second}
}

func (n *Inline) ReleaseEvent(_ context.Context, e model.ReleaseEvent) {
	go n.run(e.Kind, e.ReleaseID, func(ctx context.Context) error {
		return n.handler.HandleReleaseEvent(ctx, e)
	})
}

func (n *Inline) ReportEvent(_ context.Context, e model.ReportEvent) {
	go n.run(e.Kind, e.ReportID, func(ctx context.Context) error {
		return n.handler.HandleReportEvent(ctx, e)
	})
}

// The request context is done by the time this runs, so a fresh one is used.
func (n *Inline) run(kind, id string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Printf("Warning: %s handler failed for %s: %v", kind, id, err)
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) ReleaseEvent(context.Context, model.ReleaseEvent) {}
func (Nop) ReportEvent(context.Context, model.ReportEvent)   {}

// Recorder keeps events in memory, for tests.
type Recorder struct {
	mu       sync.Mutex
	releases []model.ReleaseEvent
	reports  []model.ReportEvent
}

func (r *Recorder) ReleaseEvent(_ context.Context, e model.ReleaseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases = append(r.releases, e)
}

func (r *Recorder) ReportEvent(_ context.Context, e model.ReportEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, e)
}

// Releases returns a copy of the recorded release events.
func (r *Recorder) Releases() []model.ReleaseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ReleaseEvent(nil), r.releases...)
}

// Reports returns a copy of the recorded report events.
func (r *Recorder) Reports() []model.ReportEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ReportEvent(nil), r.reports...)
}

// Kinds lists the recorded release event kinds in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.releases))
	for _, e := range r.releases {
		out = append(out, e.Kind)
	}
	return out
}
