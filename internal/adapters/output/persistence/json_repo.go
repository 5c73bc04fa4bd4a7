package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"myhome-bridge/internal/domain/model"
	"myhome-bridge/internal/ports"
)

var _ ports.EntryRepository = (*JSONEntryRepository)(nil)

// JSONEntryRepository stores hub entries in a single JSON file.
type JSONEntryRepository struct {
	filepath string
	mu       sync.RWMutex
}

func NewJSONEntryRepository(filepath string) *JSONEntryRepository {
	return &JSONEntryRepository{filepath: filepath}
}

func (r *JSONEntryRepository) List(ctx context.Context) ([]*model.HubEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	return entries.Hubs, nil
}

func (r *JSONEntryRepository) Get(ctx context.Context, serial string) (*model.HubEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, e := range entries.Hubs {
		if e.Serial == serial {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: entry %s", ports.ErrNotFound, serial)
}

// Save inserts the entry or replaces the one with the same serial.
func (r *JSONEntryRepository) Save(ctx context.Context, entry *model.HubEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	replaced := false
	for i, e := range entries.Hubs {
		if e.Serial == entry.Serial {
			entries.Hubs[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries.Hubs = append(entries.Hubs, entry)
	}
	return r.store(entries)
}

func (r *JSONEntryRepository) Delete(ctx context.Context, serial string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	kept := entries.Hubs[:0]
	for _, e := range entries.Hubs {
		if e.Serial != serial {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries.Hubs) {
		return fmt.Errorf("%w: entry %s", ports.ErrNotFound, serial)
	}
	entries.Hubs = kept
	return r.store(entries)
}

func (r *JSONEntryRepository) load() (*model.Entries, error) {
	data, err := os.ReadFile(r.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Entries{Hubs: []*model.HubEntry{}}, nil
		}
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	var entries model.Entries
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding entries: %w", err)
	}
	if entries.Hubs == nil {
		entries.Hubs = []*model.HubEntry{}
	}
	return &entries, nil
}

func (r *JSONEntryRepository) store(entries *model.Entries) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(r.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating entries dir: %w", err)
		}
	}
	// Entries hold hub passwords
	return os.WriteFile(r.filepath, data, 0o600)
}
