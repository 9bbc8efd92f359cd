package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mscandco/distribution-api/internal/apperr"
)

// interleave runs fn once, right after the first HGET it sees. Inside a
// WATCH block that is the version read, so fn lands between WATCH and EXEC.
type interleave struct {
	once sync.Once
	fn   func(ctx context.Context)
}

func (h *interleave) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *interleave) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if cmd.Name() == "hget" {
			h.once.Do(func() { h.fn(ctx) })
		}
		return err
	}
}

func (h *interleave) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisWriteBetweenWatchAndExec(t *testing.T) {
	ctx := context.Background()
	client := newMiniredisClient(t)
	s := NewRedis(client, "racetest:")

	base, err := s.SaveRelease(ctx, newRelease("r1", "a1", "", time.Now()), 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A second connection bumps the version after the watched read.
	other := redis.NewClient(&redis.Options{Addr: client.Options().Addr})
	defer other.Close()
	client.AddHook(&interleave{fn: func(ctx context.Context) {
		if err := other.HSet(ctx, "racetest:release:r1", "version", 5).Err(); err != nil {
			t.Errorf("interleaved write: %v", err)
		}
	}})

	_, err = s.SaveRelease(ctx, base, base.Version)
	if !errors.Is(err, apperr.ErrConcurrentModification) {
		t.Fatalf("expected concurrent modification, got %v", err)
	}
	e, _ := apperr.As(err)
	if e == nil || e.Message != "release r1 is at version 5, expected 1" {
		t.Errorf("unexpected conflict detail: %v", err)
	}

	// The aborted write would have stored version 2.
	version, err := other.HGet(ctx, "racetest:release:r1", "version").Result()
	if err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != "5" {
		t.Errorf("aborted write must not land, version is %s", version)
	}
}

func TestRedisIndexListsEveryKind(t *testing.T) {
	ctx := context.Background()
	s := NewRedis(newMiniredisClient(t), "indextest:")

	if _, err := s.SaveRelease(ctx, newRelease("r1", "a1", "l1", time.Now()), 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	releases, err := s.ListReleases(ctx, Filter{LabelID: "l1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(releases) != 1 || releases[0].Version != 1 {
		t.Errorf("unexpected listing %+v", releases)
	}
	reports, err := s.ListReports(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 0 {
		t.Errorf("expected no reports, got %d", len(reports))
	}
}
