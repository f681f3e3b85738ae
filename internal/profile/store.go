// Package profile keeps a household's learner profiles and the pointer to
// the active one, persisted through a storage.KV.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/taiganautcapital/thekidvault/internal/storage"
)

const (
	profilesKey = "kv_profiles_v2"
	activeKey   = "kv_active_profile"
)

var (
	// ErrEmptyName is returned when a profile name is blank after trimming.
	ErrEmptyName = errors.New("profile: name is required")
	// ErrProfileNotFound is returned for an index outside the collection.
	ErrProfileNotFound = errors.New("profile: not found")
)

// Profile is a named learner and the stars they have earned.
type Profile struct {
	Name  string          `json:"name"`
	Stars map[string]bool `json:"stars"`
}

// HasStar reports whether the star key has been earned.
func (p Profile) HasStar(id string) bool {
	return p.Stars[id]
}

func (p Profile) clone() Profile {
	stars := make(map[string]bool, len(p.Stars))
	for k, v := range p.Stars {
		stars[k] = v
	}
	return Profile{Name: p.Name, Stars: stars}
}

// Store is the profile collection of one household. All methods are safe for
// concurrent use; mutations are serialised and written through before
// returning.
type Store struct {
	kv        storage.KV
	household string

	mu       sync.Mutex
	profiles []Profile
	active   int
}

// Key returns the storage key for name namespaced under household.
func Key(household, name string) string {
	return "household:" + household + ":" + name
}

// Open loads the household's collection from kv. Missing or malformed data
// yields an empty collection with no active profile; Open never fails on
// bad data.
func Open(ctx context.Context, kv storage.KV, household string) *Store {
	s := &Store{kv: kv, household: household, active: -1}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	raw, found, err := s.kv.Get(ctx, Key(s.household, profilesKey))
	if err != nil {
		slog.Warn("loading profiles failed", "household", s.household, "error", err)
		return
	}
	if !found {
		return
	}

	var profiles []Profile
	if err := json.Unmarshal([]byte(raw), &profiles); err != nil {
		slog.Warn("discarding malformed profiles", "household", s.household, "error", err)
		return
	}
	for i := range profiles {
		if profiles[i].Stars == nil {
			profiles[i].Stars = make(map[string]bool)
		}
	}
	s.profiles = profiles

	raw, found, err = s.kv.Get(ctx, Key(s.household, activeKey))
	if err != nil {
		slog.Warn("loading active profile failed", "household", s.household, "error", err)
		return
	}
	if !found {
		return
	}
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || idx < 0 || idx >= len(s.profiles) {
		slog.Warn("ignoring invalid active profile", "household", s.household, "value", raw)
		return
	}
	s.active = idx
}

// AddProfile appends a profile with no stars and makes it active. Duplicate
// names are allowed.
func (s *Store) AddProfile(ctx context.Context, name string) (int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles = append(s.profiles, Profile{Name: name, Stars: make(map[string]bool)})
	s.active = len(s.profiles) - 1
	s.persistProfiles(ctx)
	s.persistActive(ctx)
	return s.active, nil
}

// SelectProfile makes the profile at index active.
func (s *Store) SelectProfile(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.profiles) {
		return fmt.Errorf("select %d: %w", index, ErrProfileNotFound)
	}
	s.active = index
	s.persistActive(ctx)
	return nil
}

// DeleteProfile removes the profile at index and returns how many remain.
// Removing the active profile moves the pointer to the profile that slid
// into its place, or the new last one; removing an earlier profile shifts
// the pointer down by one.
func (s *Store) DeleteProfile(ctx context.Context, index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.profiles) {
		return len(s.profiles), fmt.Errorf("delete %d: %w", index, ErrProfileNotFound)
	}
	s.profiles = append(s.profiles[:index], s.profiles[index+1:]...)

	n := len(s.profiles)
	switch {
	case n == 0:
		s.active = -1
	case index == s.active:
		s.active = min(s.active, n-1)
	case index < s.active:
		s.active--
	}

	s.persistProfiles(ctx)
	s.persistActive(ctx)
	return n, nil
}

// MarkStar records a star for the active profile. It reports whether the
// star was newly earned; marking without an active profile, or marking a
// star already held, changes nothing.
func (s *Store) MarkStar(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active < 0 || s.profiles[s.active].Stars[id] {
		return false
	}
	s.profiles[s.active].Stars[id] = true
	s.persistProfiles(ctx)
	return true
}

// Profiles returns a copy of the collection.
func (s *Store) Profiles() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Profile, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = p.clone()
	}
	return out
}

// Active returns a copy of the active profile and its index.
func (s *Store) Active() (Profile, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active < 0 {
		return Profile{}, -1, false
	}
	return s.profiles[s.active].clone(), s.active, true
}

// ActiveIndex returns the active pointer, or -1.
func (s *Store) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Household returns the id the store is namespaced under.
func (s *Store) Household() string {
	return s.household
}

// Write failures are logged and swallowed; in-memory state stays authoritative.
func (s *Store) persistProfiles(ctx context.Context) {
	data, err := json.Marshal(s.profiles)
	if err != nil {
		slog.Warn("encoding profiles failed", "household", s.household, "error", err)
		return
	}
	if err := s.kv.Set(ctx, Key(s.household, profilesKey), string(data)); err != nil {
		slog.Warn("saving profiles failed", "household", s.household, "error", err)
	}
}

func (s *Store) persistActive(ctx context.Context) {
	key := Key(s.household, activeKey)
	var err error
	if s.active < 0 {
		err = s.kv.Delete(ctx, key)
	} else {
		err = s.kv.Set(ctx, key, strconv.Itoa(s.active))
	}
	if err != nil {
		slog.Warn("saving active profile failed", "household", s.household, "error", err)
	}
}
