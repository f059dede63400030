// Package api exposes the retrieval cascade over HTTP: search, quick and
// boolean lexical search, semantic search and similarity, document
// ingestion, behavior recording, profile updates, and diagnostics. It
// consolidates what the teacher platform split across
// internal/searcher/handler, internal/ingestion/handler, and
// internal/gateway/handler into a single router, matching this project's
// single-service scope.
package api

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/personalize"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/semantic"
)

// searchRequestBody is the JSON body for POST /api/v1/search.
type searchRequestBody struct {
	Query   string          `json:"query"`
	UserID  string          `json:"userId,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
	Context *contextRequest `json:"context,omitempty"`
}

type locationRequest struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius float64 `json:"radius,omitempty"`
}

type contextRequest struct {
	Location        *locationRequest `json:"location,omitempty"`
	Device          string           `json:"device,omitempty"`
	SessionID       string           `json:"sessionId,omitempty"`
	PreviousQueries []string         `json:"previousQueries,omitempty"`
}

func (c *contextRequest) toPersonalize() *personalize.Context {
	if c == nil {
		return nil
	}
	ctx := &personalize.Context{
		Timestamp:       time.Now(),
		Device:          c.Device,
		SessionID:       c.SessionID,
		PreviousQueries: c.PreviousQueries,
	}
	if c.Location != nil {
		ctx.Location = &personalize.Location{
			Lat:    c.Location.Lat,
			Lng:    c.Location.Lng,
			Radius: c.Location.Radius,
		}
	}
	return ctx
}

// searchResultBody mirrors cascade.SearchResult for the wire format.
type searchResultBody struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Content              string   `json:"content,omitempty"`
	URL                  string   `json:"url,omitempty"`
	Score                float64  `json:"score"`
	Category             string   `json:"category,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	Similarity           float64  `json:"similarity"`
	PersonalizationBoost float64  `json:"personalizationBoost"`
	ContextBoost         float64  `json:"contextBoost"`
	TemporalBoost        float64  `json:"temporalBoost"`
}

type layerStatsBody struct {
	Count         int    `json:"count"`
	ExecutionTime string `json:"executionTime"`
}

// searchResponseBody mirrors cascade.SearchResponse for the wire format.
type searchResponseBody struct {
	Results              []searchResultBody `json:"results"`
	TotalCount           int                `json:"totalCount"`
	ExecutionTime        string             `json:"executionTime"`
	PersonalizationScore float64            `json:"personalizationScore"`
	Layer1               layerStatsBody     `json:"layer1"`
	Layer2               layerStatsBody     `json:"layer2"`
	Layer3               layerStatsBody     `json:"layer3"`
	Layer4               layerStatsBody     `json:"layer4"`
}

// documentRequestBody is the JSON body for POST /api/v1/documents.
// CreatedAt/UpdatedAt are optional RFC3339 timestamps: a caller replaying an
// existing corpus (warm-start, bulk import) supplies its own creation time
// so §4.5's temporal recency boost reflects the document's real age rather
// than always reading as freshly added.
type documentRequestBody struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	URL       string         `json:"url,omitempty"`
	Category  string         `json:"category,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

func (d documentRequestBody) toDocument(now time.Time) document.Document {
	createdAt, updatedAt := now, now
	if d.CreatedAt != nil {
		createdAt = *d.CreatedAt
	}
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}
	return document.Document{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		URL:       d.URL,
		Category:  d.Category,
		Tags:      d.Tags,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Metadata:  mapToValue(d.Metadata),
	}
}

// behaviorRequestBody is the JSON body for POST /api/v1/behavior.
type behaviorRequestBody struct {
	UserID      string             `json:"userId"`
	Action      personalize.Action `json:"action"`
	DocumentID  string             `json:"documentId,omitempty"`
	Query       string             `json:"query,omitempty"`
	TimeSpentMs int64              `json:"timeSpentMs,omitempty"`
}

// profilePatchBody is the JSON body for PUT /api/v1/users/{userId}/profile.
type profilePatchBody struct {
	Categories *[]string `json:"categories,omitempty"`
	Languages  *[]string `json:"languages,omitempty"`
	Topics     *[]string `json:"topics,omitempty"`
	Age        *int      `json:"age,omitempty"`
	Location   *string   `json:"location,omitempty"`
	Interests  *[]string `json:"interests,omitempty"`
}

func (p profilePatchBody) toPatch() personalize.ProfilePatch {
	return personalize.ProfilePatch{
		Categories: p.Categories,
		Languages:  p.Languages,
		Topics:     p.Topics,
		Age:        p.Age,
		Location:   p.Location,
		Interests:  p.Interests,
	}
}

type profileBody struct {
	UserID      string   `json:"userId"`
	Categories  []string `json:"categories,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	HasAge      bool     `json:"hasAge"`
	Age         int      `json:"age,omitempty"`
	Location    string   `json:"location,omitempty"`
	Interests   []string `json:"interests,omitempty"`
	LastUpdated string   `json:"lastUpdated"`
}

func profileToBody(p personalize.Profile) profileBody {
	return profileBody{
		UserID:      p.UserID,
		Categories:  p.Preferences.Categories,
		Languages:   p.Preferences.Languages,
		Topics:      p.Preferences.Topics,
		HasAge:      p.Demographics.HasAge,
		Age:         p.Demographics.Age,
		Location:    p.Demographics.Location,
		Interests:   p.Demographics.Interests,
		LastUpdated: p.LastUpdated.UTC().Format(time.RFC3339),
	}
}

type similarityResultBody struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

func similarityResultsToBody(results []semantic.SimilarityResult) []similarityResultBody {
	out := make([]similarityResultBody, len(results))
	for i, r := range results {
		out[i] = similarityResultBody{ID: r.ID, Similarity: r.Similarity}
	}
	return out
}

func mapToValue(m map[string]any) document.Value {
	if m == nil {
		return document.Null
	}
	out := make(map[string]document.Value, len(m))
	for k, v := range m {
		out[k] = valueFromAny(v)
	}
	return document.Map(out)
}

func valueFromAny(raw any) document.Value {
	switch v := raw.(type) {
	case string:
		return document.String(v)
	case float64:
		return document.Number(v)
	case bool:
		return document.Bool(v)
	case []any:
		items := make([]document.Value, len(v))
		for i, item := range v {
			items[i] = valueFromAny(item)
		}
		return document.List(items...)
	case map[string]any:
		return mapToValue(v)
	default:
		return document.Null
	}
}
