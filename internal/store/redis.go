package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mscandco/distribution-api/internal/apperr"
)

type redisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedis stores each document as a hash under <prefix><kind>:<id> and
// tracks IDs per kind in a set. Writes use WATCH/MULTI on the document key.
func NewRedis(client *redis.Client, prefix string) *Store {
	return &Store{
		b:      &redisBackend{client: client, prefix: prefix},
		driver: "redis",
	}
}

func (r *redisBackend) key(kind, id string) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, kind, id)
}

func (r *redisBackend) indexKey(kind string) string {
	return fmt.Sprintf("%s%s:index", r.prefix, kind)
}

func (r *redisBackend) get(ctx context.Context, kind, id string) (*document, error) {
	fields, err := r.client.HGetAll(ctx, r.key(kind, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	if len(fields) == 0 {
		return nil, apperr.NotFound(kind, id)
	}
	return decodeHash(kind, id, fields)
}

func (r *redisBackend) list(ctx context.Context, kind string, f Filter) ([]*document, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey(kind)).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s index: %w", kind, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, r.key(kind, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s documents: %w", kind, err)
	}

	out := make([]*document, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		d, err := decodeHash(kind, ids[i], fields)
		if err != nil {
			return nil, err
		}
		if f.matches(d) {
			out = append(out, d)
		}
	}
	sortDocuments(out)
	return out, nil
}

func (r *redisBackend) put(ctx context.Context, d *document, expected int64) error {
	key := r.key(d.Kind, d.ID)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		actual, err := tx.HGet(ctx, key, "version").Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read version: %w", err)
		}
		if actual != expected {
			return conflict(d, expected, actual)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]any{
				"status":    d.Status,
				"artistId":  d.ArtistID,
				"labelId":   d.LabelID,
				"version":   d.Version,
				"createdAt": d.CreatedAt.Format(time.RFC3339Nano),
				"data":      d.Data,
			})
			pipe.SAdd(ctx, r.indexKey(d.Kind), d.ID)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched the key between WATCH and EXEC.
		current, getErr := r.client.HGet(ctx, key, "version").Int64()
		if getErr != nil && !errors.Is(getErr, redis.Nil) {
			return fmt.Errorf("read version after conflict: %w", getErr)
		}
		return apperr.ConcurrentModification(d.Kind+" "+d.ID, expected, current)
	}
	return err
}

func (r *redisBackend) ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// The client is owned by main and closed there.
func (r *redisBackend) close() error { return nil }

func decodeHash(kind, id string, fields map[string]string) (*document, error) {
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s %s version: %w", kind, id, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["createdAt"])
	if err != nil {
		return nil, fmt.Errorf("parse %s %s createdAt: %w", kind, id, err)
	}
	return &document{
		Kind:      kind,
		ID:        id,
		Status:    fields["status"],
		ArtistID:  fields["artistId"],
		LabelID:   fields["labelId"],
		Version:   version,
		CreatedAt: createdAt,
		Data:      []byte(fields["data"]),
	}, nil
}
