// Package storage persists the tab as a single JSON value under a fixed key.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"lori/internal/core"
	"lori/internal/log"
)

// DefaultKey is the key the tab is stored under.
const DefaultKey = "lori_storage_v2"

// KV is the persistence port: one opaque value per key.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

var errNullPayload = errors.New("null payload")

// Encode serializes the collection in display order.
func Encode(items []core.Item) ([]byte, error) {
	if items == nil {
		items = []core.Item{}
	}
	return json.Marshal(items)
}

// Decode parses a stored payload. Negative counts are clamped to zero and
// repeated ids keep their first occurrence.
func Decode(data []byte) ([]core.Item, error) {
	var items []core.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if items == nil {
		return nil, errNullPayload
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]core.Item, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		if it.Count < 0 {
			it.Count = 0
		}
		out = append(out, it)
	}
	return out, nil
}

// Load reads the tab from kv. A missing, unreadable or unparsable value
// yields the seed items; an empty stored list stays empty.
func Load(ctx context.Context, kv KV, key string, logger *slog.Logger) []core.Item {
	if logger == nil {
		logger = slog.Default()
	}
	data, found, err := kv.Get(ctx, key)
	if err != nil {
		logger.WarnContext(ctx, "Failed to read stored tab, using defaults",
			log.FieldComponent, log.ComponentStorage, log.FieldKey, key, log.FieldError, err)
		return core.DefaultItems()
	}
	if !found {
		logger.InfoContext(ctx, "No stored tab, using defaults", log.FieldComponent, log.ComponentStorage, log.FieldKey, key)
		return core.DefaultItems()
	}
	items, err := Decode(data)
	if err != nil {
		logger.WarnContext(ctx, "Stored tab is corrupt, using defaults",
			log.FieldComponent, log.ComponentStorage, log.FieldKey, key, log.FieldBytes, len(data), log.FieldError, err)
		return core.DefaultItems()
	}
	logger.InfoContext(ctx, "Loaded stored tab", log.FieldComponent, log.ComponentStorage, log.FieldKey, key, log.FieldItems, len(items))
	return items
}

// Snapshotter writes the whole collection after every mutation. Write
// failures are logged and dropped.
type Snapshotter struct {
	kv     KV
	key    string
	logger *slog.Logger
}

func NewSnapshotter(kv KV, key string, logger *slog.Logger) *Snapshotter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{kv: kv, key: key, logger: logger}
}

func (s *Snapshotter) Snapshot(ctx context.Context, items []core.Item) {
	data, err := Encode(items)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode tab", log.FieldComponent, log.ComponentStorage, log.FieldError, err)
		return
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save tab",
			log.FieldComponent, log.ComponentStorage, log.FieldKey, s.key, log.FieldItems, len(items), log.FieldError, err)
		return
	}
	s.logger.DebugContext(ctx, "Tab saved", log.FieldComponent, log.ComponentStorage, log.FieldKey, s.key, log.FieldBytes, len(data))
}
