// Package storage persists instances in a NATS JetStream key value bucket.
package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"strings"

	"github.com/c360studio/semtype/instance"
	"github.com/nats-io/nats.go/jetstream"
)

// BucketInstances is the default bucket name.
const BucketInstances = "SEMTYPE_INSTANCES"

// Store provides instance storage backed by NATS KV. It serves as loader,
// bulk loader and scan source for referrer search.
type Store struct {
	bucket jetstream.KeyValue
	logger *slog.Logger
}

// NewStore opens the bucket, creating it if it does not exist yet.
func NewStore(ctx context.Context, js jetstream.JetStream, bucket string, logger *slog.Logger) (*Store, error) {
	if bucket == "" {
		bucket = BucketInstances
	}
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return nil, fmt.Errorf("create instances bucket: %w", err)
	}
	return NewStoreFromBucket(kv, logger), nil
}

// NewStoreFromBucket wraps an already opened bucket.
func NewStoreFromBucket(kv jetstream.KeyValue, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{bucket: kv, logger: logger}
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semtype %s storage", strings.ToLower(name)),
		History:     5,
	})
}

// Key maps an instance id to a bucket key. Instance ids contain characters
// NATS keys do not allow, so they are base64url encoded.
func Key(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// Put stores the instance, replacing the previous revision.
func (s *Store) Put(ctx context.Context, inst *instance.Instance) error {
	if inst.ID == "" {
		return fmt.Errorf("store instance: empty id")
	}
	data, err := json.Marshal(inst)
	if err != nil {
		return fmt.Errorf("marshal instance: %w", err)
	}
	if _, err := s.bucket.Put(ctx, Key(inst.ID), data); err != nil {
		return fmt.Errorf("store instance %s: %w", inst.ID, err)
	}
	return nil
}

// Load implements instance.Loader.
func (s *Store) Load(ctx context.Context, id string) (*instance.Instance, error) {
	entry, err := s.bucket.Get(ctx, Key(id))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get instance %s: %w", id, err)
	}
	return decode(entry.Value())
}

// LoadAll implements instance.BulkLoader. Missing ids are skipped.
func (s *Store) LoadAll(ctx context.Context, ids []string) ([]*instance.Instance, error) {
	result := make([]*instance.Instance, 0, len(ids))
	for _, id := range ids {
		inst, err := s.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, inst)
	}
	return result, nil
}

// Scan yields every stored instance ordered by key. Entries removed or
// corrupted while scanning are skipped.
func (s *Store) Scan(ctx context.Context) iter.Seq2[*instance.Instance, error] {
	return func(yield func(*instance.Instance, error) bool) {
		keys, err := s.bucket.Keys(ctx)
		if err != nil {
			if errors.Is(err, jetstream.ErrNoKeysFound) {
				return
			}
			yield(nil, fmt.Errorf("list instance keys: %w", err))
			return
		}
		sort.Strings(keys)

		for _, key := range keys {
			entry, err := s.bucket.Get(ctx, key)
			if err != nil {
				if !isNotFound(err) {
					s.logger.Warn("Failed to get key", "key", key, "error", err)
				}
				continue
			}
			inst, err := decode(entry.Value())
			if err != nil {
				s.logger.Warn("Failed to unmarshal instance", "key", key, "error", err)
				continue
			}
			if !yield(inst, nil) {
				return
			}
		}
	}
}

// Import copies every instance of the source into the bucket and returns
// how many were stored.
func (s *Store) Import(ctx context.Context, source iter.Seq2[*instance.Instance, error]) (int, error) {
	n := 0
	for inst, err := range source {
		if err != nil {
			return n, err
		}
		if err := s.Put(ctx, inst); err != nil {
			return n, err
		}
		n++
	}
	s.logger.Info("Imported instances", "count", n)
	return n, nil
}

func decode(data []byte) (*instance.Instance, error) {
	var inst instance.Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("unmarshal instance: %w", err)
	}
	if inst.Properties == nil {
		inst.Properties = make(map[string]any)
	}
	return &inst, nil
}

// isNotFound checks if an error indicates a key was not found or deleted.
func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}
