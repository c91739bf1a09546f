package sessionvalkey

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/memory-match/internal/serviceerr"
)

type store struct {
	valkey valkey.Client
	prefix string
}

func newStore(valkeyClient valkey.Client, prefix string) *store {
	prefix = strings.TrimSuffix(prefix, ":")
	return &store{
		valkey: valkeyClient,
		prefix: prefix,
	}
}

// Get returns the raw value or serviceerr.ErrNotFound.
func (s *store) Get(ctx context.Context, objectType ObjectType, objectID string) ([]byte, error) {
	return s.get(ctx, s.key(objectType, objectID))
}

// Set writes val. A positive ttl expires the key.
func (s *store) Set(ctx context.Context, objectType ObjectType, objectID string, val []byte, ttl time.Duration) error {
	key := s.key(objectType, objectID)
	set := s.valkey.B().Set().Key(key).Value(valkey.BinaryString(val))

	var cmd valkey.Completed
	if ttl > 0 {
		cmd = set.ExSeconds(max(int64(ttl/time.Second), 1)).Build()
	} else {
		cmd = set.Build()
	}

	if err := s.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (s *store) Exists(ctx context.Context, objectType ObjectType, objectID string) (bool, error) {
	key := s.key(objectType, objectID)
	n, err := s.valkey.Do(ctx, s.valkey.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("executing exists command: %w", err)
	}

	return n > 0, nil
}

// Destroy deletes the key and reports whether it existed.
func (s *store) Destroy(ctx context.Context, objectType ObjectType, objectID string) (bool, error) {
	key := s.key(objectType, objectID)
	n, err := s.valkey.Do(ctx, s.valkey.B().Del().Key(key).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("executing del command: %w", err)
	}

	return n > 0, nil
}

// IDs lists the object ids of every key of the given type.
func (s *store) IDs(ctx context.Context, objectType ObjectType) ([]string, error) {
	keyPrefix := s.key(objectType, "")
	var (
		ids    []string
		cursor uint64
	)
	for {
		scan, err := s.valkey.Do(ctx, s.valkey.B().Scan().Cursor(cursor).Match(keyPrefix+"*").Count(100).Build()).AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("executing scan command: %w", err)
		}

		cursor = scan.Cursor
		for _, key := range scan.Elements {
			ids = append(ids, strings.TrimPrefix(key, keyPrefix))
		}

		if cursor == 0 {
			return ids, nil
		}
	}
}

func (s *store) get(ctx context.Context, key string) ([]byte, error) {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, serviceerr.ErrNotFound
		}

		return nil, fmt.Errorf("executing get command: %w", err)
	}

	return bytes, nil
}

func (s *store) key(objectType ObjectType, objectID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, objectType, objectID)
}

func (s *store) encode(v any) ([]byte, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling json: %w", err)
	}

	return bytes, nil
}

func (s *store) decode(data []byte, into any) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}

	return nil
}
