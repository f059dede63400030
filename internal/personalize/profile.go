// Package personalize implements Stage-4 of the retrieval cascade: a
// personalization re-ranker that blends user-profile, request-context, and
// temporal boosts into Stage-3's fused scores. No teacher component covers
// user profiling directly; the bounded-history append/trim pattern and the
// boost tables are new, written in the teacher's small-pure-function idiom,
// with the final truncate-and-sort step delegated to the shared
// internal/topk package (itself generalized from the teacher's
// internal/searcher/merger).
package personalize

import (
	"sync"
	"time"
)

const (
	clickHistoryCap  = 100
	searchHistoryCap = 50
)

// Preferences are the user's declared interest categories.
type Preferences struct {
	Categories []string
	Languages  []string
	Topics     []string
}

// Behavior is the user's bounded interaction history.
type Behavior struct {
	ClickHistory  []string
	SearchHistory []string
	TimeSpent     map[string]int64
}

// Demographics are optional self-reported attributes.
type Demographics struct {
	Age       int
	HasAge    bool
	Location  string
	Interests []string
}

// Profile is one user's personalization state: preferences, behavior
// history, and optional demographics.
type Profile struct {
	UserID       string
	Preferences  Preferences
	Behavior     Behavior
	Demographics Demographics
	HasDemo      bool
	LastUpdated  time.Time
}

func newProfile(userID string) *Profile {
	return &Profile{
		UserID: userID,
		Behavior: Behavior{
			TimeSpent: make(map[string]int64),
		},
	}
}

// Store holds one Profile per user, created lazily on first recorded
// behavior or update, and mutated in place with bounded histories.
// Concurrent updates for the same user are serialized behind the store's
// mutex; the spec allows this (profiles are cheap to touch, not hot-path
// contended).
type Store struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

// NewStore creates an empty profile store.
func NewStore() *Store {
	return &Store{profiles: make(map[string]*Profile)}
}

// Get returns a copy of userID's profile and whether one exists.
func (s *Store) Get(userID string) (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, false
	}
	return cloneProfile(p), true
}

// Action is one kind of recordable user-behavior event.
type Action string

const (
	ActionClick     Action = "click"
	ActionSearch    Action = "search"
	ActionTimeSpent Action = "time_spent"
)

// BehaviorData carries the payload for a recorded action: DocumentID for
// click and time_spent, Query for search, TimeSpentMs for time_spent.
type BehaviorData struct {
	DocumentID  string
	Query       string
	TimeSpentMs int64
}

// RecordBehavior appends a click, search, or time_spent event to userID's
// profile, creating the profile lazily if it does not yet exist. Histories
// are trimmed FIFO to their documented caps.
func (s *Store) RecordBehavior(userID string, action Action, data BehaviorData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		p = newProfile(userID)
		s.profiles[userID] = p
	}

	switch action {
	case ActionClick:
		p.Behavior.ClickHistory = appendUnique(p.Behavior.ClickHistory, data.DocumentID, clickHistoryCap)
	case ActionSearch:
		p.Behavior.SearchHistory = appendBounded(p.Behavior.SearchHistory, data.Query, searchHistoryCap)
	case ActionTimeSpent:
		if p.Behavior.TimeSpent == nil {
			p.Behavior.TimeSpent = make(map[string]int64)
		}
		p.Behavior.TimeSpent[data.DocumentID] += data.TimeSpentMs
	}
	p.LastUpdated = time.Now()
}

// Update upserts userID's profile: fields present in patch overwrite the
// stored profile, fields left at their zero value are preserved. The
// profile is created lazily if it does not exist.
func (s *Store) Update(userID string, patch ProfilePatch) Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		p = newProfile(userID)
		s.profiles[userID] = p
	}
	patch.applyTo(p)
	p.LastUpdated = time.Now()
	return cloneProfile(p)
}

// ProfilePatch is a partial Profile update: nil/zero fields are no-ops.
type ProfilePatch struct {
	Categories *[]string
	Languages  *[]string
	Topics     *[]string
	Age        *int
	Location   *string
	Interests  *[]string
}

func (p ProfilePatch) applyTo(profile *Profile) {
	if p.Categories != nil {
		profile.Preferences.Categories = *p.Categories
	}
	if p.Languages != nil {
		profile.Preferences.Languages = *p.Languages
	}
	if p.Topics != nil {
		profile.Preferences.Topics = *p.Topics
	}
	if p.Age != nil {
		profile.Demographics.Age = *p.Age
		profile.Demographics.HasAge = true
		profile.HasDemo = true
	}
	if p.Location != nil {
		profile.Demographics.Location = *p.Location
		profile.HasDemo = true
	}
	if p.Interests != nil {
		profile.Demographics.Interests = *p.Interests
		profile.HasDemo = true
	}
}

func appendUnique(history []string, id string, cap int) []string {
	if id == "" {
		return history
	}
	for _, existing := range history {
		if existing == id {
			return history
		}
	}
	return trimFIFO(append(history, id), cap)
}

func appendBounded(history []string, entry string, cap int) []string {
	if entry == "" {
		return history
	}
	return trimFIFO(append(history, entry), cap)
}

func trimFIFO(history []string, cap int) []string {
	if len(history) <= cap {
		return history
	}
	return history[len(history)-cap:]
}

func cloneProfile(p *Profile) Profile {
	out := *p
	out.Preferences.Categories = append([]string(nil), p.Preferences.Categories...)
	out.Preferences.Languages = append([]string(nil), p.Preferences.Languages...)
	out.Preferences.Topics = append([]string(nil), p.Preferences.Topics...)
	out.Behavior.ClickHistory = append([]string(nil), p.Behavior.ClickHistory...)
	out.Behavior.SearchHistory = append([]string(nil), p.Behavior.SearchHistory...)
	out.Behavior.TimeSpent = make(map[string]int64, len(p.Behavior.TimeSpent))
	for k, v := range p.Behavior.TimeSpent {
		out.Behavior.TimeSpent[k] = v
	}
	out.Demographics.Interests = append([]string(nil), p.Demographics.Interests...)
	return out
}
