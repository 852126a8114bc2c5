package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/store"
)

const keyPrefix = "history/"

// Repository persists snapshot lists per base identifier.
type Repository interface {
	Load(ctx context.Context, base string) ([]domain.RevisionSnapshot, error)
	Save(ctx context.Context, base string, snapshots []domain.RevisionSnapshot) error
	Delete(ctx context.Context, base string) error
	Identifiers(ctx context.Context) ([]string, error)
}

// KVRepository stores each history as one JSON document in a store.KV.
type KVRepository struct {
	kv store.KV
}

// NewKVRepository creates a repository on kv.
func NewKVRepository(kv store.KV) *KVRepository {
	return &KVRepository{kv: kv}
}

// Load returns the stored snapshots, or nil when none exist.
func (r *KVRepository) Load(ctx context.Context, base string) ([]domain.RevisionSnapshot, error) {
	var snapshots []domain.RevisionSnapshot
	if err := store.GetJSON(ctx, r.kv, keyPrefix+base, &snapshots); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load history: %w", err)
	}
	return snapshots, nil
}

// Save replaces the stored snapshots.
func (r *KVRepository) Save(ctx context.Context, base string, snapshots []domain.RevisionSnapshot) error {
	if err := store.PutJSON(ctx, r.kv, keyPrefix+base, snapshots); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Delete removes the stored snapshots.
func (r *KVRepository) Delete(ctx context.Context, base string) error {
	if err := r.kv.Delete(ctx, keyPrefix+base); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// Identifiers lists base identifiers with stored history.
func (r *KVRepository) Identifiers(ctx context.Context) ([]string, error) {
	keys, err := r.kv.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, keyPrefix))
	}
	return ids, nil
}
