package personalize

import (
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
)

func TestPersonalizeUserProfileBoostScenario(t *testing.T) {
	store := NewStore()
	store.RecordBehavior("u1", ActionClick, BehaviorData{DocumentID: "d1"})
	store.Update("u1", ProfilePatch{Categories: ptrSlice("technology")})

	p := New(store, DefaultWeights())

	stage3Score := 1.0
	inputs := []Input{{
		ID:       "d1",
		Title:    "Machine Learning",
		Content:  "algorithms that learn from data",
		Category: "technology",
		Score:    stage3Score,
	}}

	results, _ := p.Personalize(inputs, "u1", nil, time.Now(), 20)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	delta := results[0].FinalScore - stage3Score
	minExpected := 0.35 * DefaultWeights().UserProfile * stage3Score
	if delta < minExpected-1e-9 {
		t.Fatalf("expected score increase of at least %v, got %v", minExpected, delta)
	}
}

func TestPersonalizeIdempotentWithoutSignals(t *testing.T) {
	store := NewStore()
	p := New(store, Weights{UserProfile: 0.3, Context: 0.2, Temporal: 0.1})

	inputs := []Input{
		{ID: "d1", Score: 1.5},
		{ID: "d2", Score: 0.9},
	}
	// no category/hour/day/recency signals can match: use a neutral time
	// and category absent from every temporal table.
	neutralTime := time.Date(2024, time.January, 1, 3, 0, 0, 0, time.UTC)

	results, _ := p.Personalize(inputs, "", nil, neutralTime, 20)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "d1" || results[0].FinalScore != 1.5 {
		t.Fatalf("expected d1 unchanged and first, got %+v", results[0])
	}
	if results[1].ID != "d2" || results[1].FinalScore != 0.9 {
		t.Fatalf("expected d2 unchanged and second, got %+v", results[1])
	}
}

func TestPersonalizeCapEnforced(t *testing.T) {
	store := NewStore()
	p := New(store, DefaultWeights())

	inputs := make([]Input, 0, 30)
	for i := 0; i < 30; i++ {
		inputs = append(inputs, Input{ID: string(rune('a' + i)), Score: float64(i)})
	}
	results, _ := p.Personalize(inputs, "", nil, time.Now(), 20)
	if len(results) != 20 {
		t.Fatalf("expected cap of 20, got %d", len(results))
	}
}

func TestPersonalizationScoreClampedToOne(t *testing.T) {
	store := NewStore()
	p := New(store, Weights{UserProfile: 0.6, Context: 0.6, Temporal: 0.6})
	ctx := &Context{Device: "mobile"}
	_, score := p.Personalize([]Input{{ID: "d1", Score: 1.0}}, "u1", ctx, time.Now(), 20)
	if score != 1.0 {
		t.Fatalf("expected clamped personalization score of 1.0, got %v", score)
	}
}

func TestClickHistoryBoundedAndDeduplicated(t *testing.T) {
	store := NewStore()
	for i := 0; i < 150; i++ {
		store.RecordBehavior("u1", ActionClick, BehaviorData{DocumentID: docID(i)})
	}
	store.RecordBehavior("u1", ActionClick, BehaviorData{DocumentID: docID(149)})
	profile, ok := store.Get("u1")
	if !ok {
		t.Fatalf("expected profile to exist")
	}
	if len(profile.Behavior.ClickHistory) > 100 {
		t.Fatalf("clickHistory exceeded cap: %d", len(profile.Behavior.ClickHistory))
	}
	last := profile.Behavior.ClickHistory[len(profile.Behavior.ClickHistory)-1]
	if last != docID(149) {
		t.Fatalf("expected most recent click retained, got %s", last)
	}
	seen := 0
	for _, id := range profile.Behavior.ClickHistory {
		if id == docID(149) {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("expected a repeated click to be recorded once, found it %d times", seen)
	}
}

func TestSearchHistoryBounded(t *testing.T) {
	store := NewStore()
	for i := 0; i < 80; i++ {
		store.RecordBehavior("u1", ActionSearch, BehaviorData{Query: docID(i)})
	}
	profile, ok := store.Get("u1")
	if !ok {
		t.Fatalf("expected profile to exist")
	}
	if len(profile.Behavior.SearchHistory) > 50 {
		t.Fatalf("searchHistory exceeded cap: %d", len(profile.Behavior.SearchHistory))
	}
}

func TestUpdateProfilePreservesUnsetFields(t *testing.T) {
	store := NewStore()
	store.Update("u1", ProfilePatch{Categories: ptrSlice("technology")})
	updated := store.Update("u1", ProfilePatch{Languages: ptrSlice("en")})

	if len(updated.Preferences.Categories) != 1 || updated.Preferences.Categories[0] != "technology" {
		t.Fatalf("expected categories preserved from earlier update, got %v", updated.Preferences.Categories)
	}
	if len(updated.Preferences.Languages) != 1 || updated.Preferences.Languages[0] != "en" {
		t.Fatalf("expected languages set by this update, got %v", updated.Preferences.Languages)
	}
}

func TestLocationBoostIgnoresMissingMetadata(t *testing.T) {
	in := Input{ID: "d1", Metadata: document.Null}
	ctx := Context{Location: &Location{Lat: 1, Lng: 1}}
	if b := locationBoost(in, ctx); b != 0 {
		t.Fatalf("expected 0 boost without location metadata, got %v", b)
	}
}

func ptrSlice(s ...string) *[]string { return &s }

func docID(i int) string {
	return "doc-" + strconv.Itoa(i)
}
