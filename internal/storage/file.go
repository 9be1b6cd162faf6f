package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pfrederiksen/venue-events/internal/event"
)

const snapshotFile = "events.json"

// Snapshot is the on-disk shape of a FileStore.
type Snapshot struct {
	Events    map[string]*event.Event `json:"events"`
	Featured  []Featured              `json:"featured,omitempty"`
	Runs      []VenueRun              `json:"runs,omitempty"`
	UpdatedAt string                  `json:"updatedAt"`
}

// FileStore persists events to a JSON snapshot file.
type FileStore struct {
	mu      sync.Mutex
	dataDir string
}

// NewFile creates a FileStore rooted at dataDir, creating it if needed.
func NewFile(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &FileStore{dataDir: dataDir}, nil
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string {
	return filepath.Join(s.dataDir, snapshotFile)
}

func (s *FileStore) load() (*Snapshot, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{Events: make(map[string]*event.Event)}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snapshot.Events == nil {
		snapshot.Events = make(map[string]*event.Event)
	}
	return &snapshot, nil
}

func (s *FileStore) save(snapshot *Snapshot) error {
	snapshot.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

func findMatch(snapshot *Snapshot, id, title string, start time.Time) bool {
	if _, ok := snapshot.Events[id]; ok {
		return true
	}
	for _, evt := range snapshot.Events {
		if evt.Title == title && evt.StartDate.Equal(start) {
			return true
		}
	}
	return false
}

// Exists reports whether an event matches id, or title and start.
func (s *FileStore) Exists(_ context.Context, id, title string, start time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load()
	if err != nil {
		return false, err
	}
	return findMatch(snapshot, id, title, start), nil
}

// Insert adds evt, returning ErrDuplicate if it matches a stored event.
func (s *FileStore) Insert(_ context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load()
	if err != nil {
		return err
	}
	if findMatch(snapshot, evt.ID, evt.Title, evt.StartDate) {
		return ErrDuplicate
	}
	snapshot.Events[evt.ID] = evt
	return s.save(snapshot)
}

// Get returns the event with id.
func (s *FileStore) Get(_ context.Context, id string) (*event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	evt, ok := snapshot.Events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return evt, nil
}

// List returns matching events ordered by start date, then title.
func (s *FileStore) List(_ context.Context, q Query) ([]*event.Event, error) {
	s.mu.Lock()
	snapshot, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	events := make([]*event.Event, 0, len(snapshot.Events))
	for _, evt := range snapshot.Events {
		if q.Matches(evt) {
			events = append(events, evt)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].Title < events[j].Title
	})
	if q.Limit > 0 && len(events) > q.Limit {
		events = events[:q.Limit]
	}
	return events, nil
}

// Update applies u to the event with id.
func (s *FileStore) Update(_ context.Context, id string, u Update) (*event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load()
	if err != nil {
		return nil, err
	}
	evt, ok := snapshot.Events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	u.Apply(evt, time.Now().UTC())
	if err := s.save(snapshot); err != nil {
		return nil, err
	}
	return evt, nil
}

// DeleteMany removes every listed id and returns how many existed.
func (s *FileStore) DeleteMany(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load()
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, id := range ids {
		if _, ok := snapshot.Events[id]; ok {
			delete(snapshot.Events, id)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, nil
	}
	if err := s.save(snapshot); err != nil {
		return 0, err
	}
	return deleted, nil
}

// ListFeatured returns the featured list ordered by position.
func (s *FileStore) ListFeatured(_ context.Context) ([]Featured, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load()
	if err != nil {
		return nil, err
	}
	featured := append([]Featured{}, snapshot.Featured...)
	sort.SliceStable(featured, func(i, j int) bool { return featured[i].Order < featured[j].Order })
	return featured, nil
}

// AddFeatured appends eventID to the featured list.
func (s *FileStore) AddFeatured(_ context.Context, eventID string) (Featured, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load()
	if err != nil {
		return Featured{}, err
	}
	if _, ok := snapshot.Events[eventID]; !ok {
		return Featured{}, fmt.Errorf("%w: %s", ErrNotFound, eventID)
	}

	next := 0
	for _, f := range snapshot.Featured {
		if f.EventID == eventID {
			return Featured{}, ErrAlreadyFeatured
		}
		if f.Order >= next {
			next = f.Order + 1
		}
	}

	entry := Featured{EventID: eventID, Order: next, AddedAt: time.Now().UTC()}
	snapshot.Featured = append(snapshot.Featured, entry)
	if err := s.save(snapshot); err != nil {
		return Featured{}, err
	}
	return entry, nil
}

// RemoveFeatured drops eventID and renumbers the remaining entries.
func (s *FileStore) RemoveFeatured(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load()
	if err != nil {
		return err
	}

	kept := make([]Featured, 0, len(snapshot.Featured))
	for _, f := range snapshot.Featured {
		if f.EventID != eventID {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(snapshot.Featured) {
		return ErrNotFeatured
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Order < kept[j].Order })
	for i := range kept {
		kept[i].Order = i
	}
	snapshot.Featured = kept
	return s.save(snapshot)
}

// RecordRun appends run and trims its venue's history to keep entries.
func (s *FileStore) RecordRun(_ context.Context, run VenueRun, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load()
	if err != nil {
		return err
	}
	snapshot.Runs = trimRuns(append(snapshot.Runs, run), run.Venue, keep)
	return s.save(snapshot)
}

// trimRuns drops the oldest runs of venue beyond keep. Runs are appended in
// time order, so the oldest come first.
func trimRuns(runs []VenueRun, venue string, keep int) []VenueRun {
	if keep <= 0 {
		return runs
	}
	total := 0
	for _, r := range runs {
		if r.Venue == venue {
			total++
		}
	}
	drop := total - keep
	if drop <= 0 {
		return runs
	}

	out := make([]VenueRun, 0, len(runs)-drop)
	for _, r := range runs {
		if r.Venue == venue && drop > 0 {
			drop--
			continue
		}
		out = append(out, r)
	}
	return out
}

// Runs returns recorded runs for venue, or for every venue when empty.
func (s *FileStore) Runs(_ context.Context, venue string) ([]VenueRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.load()
	if err != nil {
		return nil, err
	}
	runs := make([]VenueRun, 0, len(snapshot.Runs))
	for _, r := range snapshot.Runs {
		if venue == "" || r.Venue == venue {
			runs = append(runs, r)
		}
	}
	sortRuns(runs)
	return runs, nil
}

// Close is a no-op.
func (s *FileStore) Close(context.Context) error {
	return nil
}
