package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kalambet/resumesync/internal/storage"
)

// ProfileStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type ProfileStore interface {
	GetProfileData(userID string) (string, error)
	SaveProfileData(userID, data string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type cacheEntry struct {
	profile Profile
	at      time.Time
}

// Manager provides cached access to per-user profiles and is the single
// writer for them: read-modify-write cycles for the same user are
// serialized, different users proceed in parallel.
type Manager struct {
	store ProfileStore
	clock Clock
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry

	locks keyedMutex
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store ProfileStore) *Manager {
	return NewManagerWithClock(store, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store ProfileStore, clock Clock, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		clock: clock,
		ttl:   ttl,
		cache: make(map[string]cacheEntry),
	}
}

// Get returns the user's profile. A user without a stored profile gets an
// empty one.
func (m *Manager) Get(userID string) (Profile, error) {
	m.mu.RLock()
	if e, ok := m.cache[userID]; ok && m.clock.Now().Before(e.at.Add(m.ttl)) {
		p := deepCopyProfile(&e.profile)
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	// Slow path: load under the write lock so a concurrent invalidate
	// cannot be overtaken by a stale entry.
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.cache[userID]; ok && m.clock.Now().Before(e.at.Add(m.ttl)) {
		return deepCopyProfile(&e.profile), nil
	}

	p, err := m.load(userID)
	if err != nil {
		return Profile{}, err
	}
	m.cache[userID] = cacheEntry{profile: p, at: m.clock.Now()}
	return deepCopyProfile(&p), nil
}

// Update runs fn on a fresh snapshot of the profile and persists the result.
// Concurrent updates for the same user run one at a time. It reports whether
// the stored profile changed.
func (m *Manager) Update(userID string, fn func(Profile) Profile) (Profile, bool, error) {
	unlock := m.locks.lock(userID)
	defer unlock()

	before, err := m.load(userID)
	if err != nil {
		return Profile{}, false, err
	}
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return Profile{}, false, fmt.Errorf("marshalling profile: %w", err)
	}

	after := fn(deepCopyProfile(&before))
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return Profile{}, false, fmt.Errorf("marshalling profile: %w", err)
	}
	if bytes.Equal(beforeJSON, afterJSON) {
		return after, false, nil
	}

	if err := m.store.SaveProfileData(userID, string(afterJSON)); err != nil {
		return Profile{}, false, fmt.Errorf("saving profile for %q: %w", userID, err)
	}
	m.invalidate(userID)
	return after, true, nil
}

// Apply merges an extracted fragment into the user's profile.
func (m *Manager) Apply(userID string, f *Fragment) (Profile, bool, error) {
	if f.IsEmpty() {
		p, err := m.Get(userID)
		return p, false, err
	}
	return m.Update(userID, func(p Profile) Profile { return Merge(p, f) })
}

// Replace stores p as the user's profile, for explicit user edits.
func (m *Manager) Replace(userID string, p Profile) error {
	_, _, err := m.Update(userID, func(Profile) Profile { return p })
	return err
}

// Summary returns a compact text rendering of the profile for prompts.
func (m *Manager) Summary(userID string) (string, error) {
	p, err := m.Get(userID)
	if err != nil {
		return "", fmt.Errorf("getting profile for summary: %w", err)
	}
	return Summarize(p), nil
}

func (m *Manager) invalidate(userID string) {
	m.mu.Lock()
	delete(m.cache, userID)
	m.mu.Unlock()
}

func (m *Manager) load(userID string) (Profile, error) {
	data, err := m.store.GetProfileData(userID)
	if errors.Is(err, storage.ErrNotFound) {
		return Profile{}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("loading profile for %q: %w", userID, err)
	}

	var p Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		slog.Warn("malformed stored profile, starting empty", "user_id", userID, "error", err)
		return Profile{}, nil
	}
	return p, nil
}

// maxSummaryChars caps the summary to stay under ~500 tokens (4 chars/token).
const maxSummaryChars = 2000

// Summarize renders a profile as short prose.
func Summarize(p Profile) string {
	var parts []string

	if p.PersonalInfo.FullName != "" {
		parts = append(parts, fmt.Sprintf("Name: %s.", p.PersonalInfo.FullName))
	}
	if p.PersonalInfo.Location != "" {
		parts = append(parts, fmt.Sprintf("Based in %s.", p.PersonalInfo.Location))
	}
	if p.Summary != "" {
		parts = append(parts, p.Summary)
	}

	if len(p.Experience) > 0 {
		var roles []string
		for _, e := range p.Experience {
			roles = append(roles, strings.TrimSpace(fmt.Sprintf("%s at %s", e.Title, e.Company)))
		}
		parts = append(parts, fmt.Sprintf("Experience: %s.", strings.Join(roles, "; ")))
	}

	if len(p.Education) > 0 {
		var eds []string
		for _, e := range p.Education {
			eds = append(eds, strings.TrimSpace(fmt.Sprintf("%s, %s", e.Degree, e.Institution)))
		}
		parts = append(parts, fmt.Sprintf("Education: %s.", strings.Join(eds, "; ")))
	}

	for _, g := range p.Skills {
		if len(g.Skills) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s.", g.Category, strings.Join(g.Skills, ", ")))
		}
	}

	if len(p.Projects) > 0 {
		names := make([]string, 0, len(p.Projects))
		for _, pr := range p.Projects {
			names = append(names, pr.Name)
		}
		parts = append(parts, fmt.Sprintf("Projects: %s.", strings.Join(names, ", ")))
	}

	if len(p.Languages) > 0 {
		parts = append(parts, fmt.Sprintf("Languages: %s.", strings.Join(p.Languages, ", ")))
	}

	if len(parts) == 0 {
		return "Profile: empty."
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Ensure we don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}

// keyedMutex hands out one mutex per key and forgets it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &refMutex{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
