package personalize

import (
	"math"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
)

// Input is the minimal shape Stage-4 needs from a Stage-3 result. The
// cascade orchestrator converts semantic.Result into Input at the stage
// boundary, keeping personalize free of a Stage-3 import (each stage owns
// its own view of a document; nothing is shared across stages).
type Input struct {
	ID        string
	Title     string
	Content   string
	URL       string
	Category  string
	Tags      []string
	Metadata  document.Value
	CreatedAt time.Time
	Score     float64
}

// Location is the user's reported coordinates. Radius is accepted for
// request-shape compatibility but has no effect on the boost, matching the
// source's calculateLocationBoost, which also ignores it.
type Location struct {
	Lat, Lng float64
	Radius   float64
}

// Context is the per-request personalization context: location, device,
// session, and the caller's own record of its recent queries.
type Context struct {
	Location        *Location
	Timestamp       time.Time
	Device          string
	SessionID       string
	PreviousQueries []string
}

const (
	categoryBoost      = 0.20
	clickBoost         = 0.15
	searchOverlapUnit  = 0.05
	searchOverlapCap   = 0.20
	timeSpentCap       = 0.10
	ageMatchBoost      = 0.10
	interestBoostScale = 0.15

	locationBoostNear    = 0.20
	locationBoostClose   = 0.10
	locationBoostModerate = 0.05
	mobileBoost          = 0.10
	desktopBoost         = 0.05
	priorQueryUnit       = 0.03
	priorQueryCap        = 0.10

	hourOfDayBoost  = 0.05
	dayOfWeekBoost  = 0.03
	recencyBoost1h  = 0.10
	recencyBoost24h = 0.05
	recencyBoost7d  = 0.02

	earthRadiusKm = 6371.0
)

var ageBuckets = map[string][2]int{
	"teen":         {13, 19},
	"young_adult":  {20, 30},
	"adult":        {31, 50},
	"senior":       {51, 100},
}

var hourOfDayByCategory = map[string][]int{
	"news":          {6, 7, 8, 18, 19, 20},
	"entertainment": {19, 20, 21, 22, 23},
	"work":          {9, 10, 11, 14, 15, 16},
	"shopping":      {10, 11, 12, 15, 16, 17, 20, 21},
}

var dayOfWeekByCategory = map[string][]time.Weekday{
	"work":          {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	"entertainment": {time.Friday, time.Saturday, time.Sunday},
	"shopping":      {time.Saturday, time.Sunday},
	"news":          {time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
}

// userProfileBoost computes §4.5's user-profile boost fraction for a single
// result, given the resolved profile.
func userProfileBoost(in Input, p Profile) float64 {
	var boost float64

	category, _ := in.Metadata.Get("category").AsString()
	if category == "" {
		category = in.Category
	}
	if containsFold(p.Preferences.Categories, category) {
		boost += categoryBoost
	}

	if containsFold(p.Behavior.ClickHistory, in.ID) {
		boost += clickBoost
	}

	haystack := strings.ToLower(in.Title + " " + in.Content)
	var overlap float64
	for _, query := range p.Behavior.SearchHistory {
		for _, word := range strings.Fields(strings.ToLower(query)) {
			if word != "" && strings.Contains(haystack, word) {
				overlap += searchOverlapUnit
			}
		}
	}
	if overlap > searchOverlapCap {
		overlap = searchOverlapCap
	}
	boost += overlap

	if t, ok := p.Behavior.TimeSpent[in.ID]; ok {
		spent := float64(t) / 1000.0
		if spent > timeSpentCap {
			spent = timeSpentCap
		}
		boost += spent
	}

	if p.HasDemo {
		if p.Demographics.HasAge {
			if ageGroup, ok := in.Metadata.Get("ageGroup").AsString(); ok {
				if bounds, ok := ageBuckets[ageGroup]; ok {
					if p.Demographics.Age >= bounds[0] && p.Demographics.Age <= bounds[1] {
						boost += ageMatchBoost
					}
				}
			}
		}
		if len(p.Demographics.Interests) > 0 && len(in.Tags) > 0 {
			matched := 0
			for _, interest := range p.Demographics.Interests {
				if tagsContainFold(in.Tags, interest) {
					matched++
				}
			}
			fraction := float64(matched) / float64(len(p.Demographics.Interests))
			boost += interestBoostScale * fraction
		}
	}

	return boost
}

// locationBoost computes §4.5's location boost fraction. The spec singles
// this component out as weighted by a fixed 0.1 rather than the configured
// contextWeight (§4.5's "location uses a fixed 0.1" aside); the pipeline
// applies it separately from the rest of the contextual boost for that
// reason.
func locationBoost(in Input, ctx Context) float64 {
	if ctx.Location == nil {
		return 0
	}
	lat, latOK := in.Metadata.Path("location", "lat").AsFloat64()
	lng, lngOK := in.Metadata.Path("location", "lng").AsFloat64()
	if !latOK || !lngOK {
		return 0
	}
	d := haversineKm(ctx.Location.Lat, ctx.Location.Lng, lat, lng)
	switch {
	case d < 1:
		return locationBoostNear
	case d < 5:
		return locationBoostClose
	case d < 10:
		return locationBoostModerate
	default:
		return 0
	}
}

// contextualBoost computes §4.5's non-location contextual boost fraction
// (device, session, prior-queries) for a result under the given context.
func contextualBoost(in Input, ctx Context) float64 {
	var boost float64

	switch ctx.Device {
	case "mobile":
		if b, _ := in.Metadata.Get("mobileOptimized").AsBool(); b {
			boost += mobileBoost
		}
	case "desktop":
		if b, _ := in.Metadata.Get("desktopOptimized").AsBool(); b {
			boost += desktopBoost
		}
	}

	// Session is reserved; contributes 0 in this version.

	if len(ctx.PreviousQueries) > 0 {
		haystack := strings.ToLower(in.Title + " " + in.Content)
		var overlap float64
		for _, query := range ctx.PreviousQueries {
			for _, word := range strings.Fields(strings.ToLower(query)) {
				if word != "" && strings.Contains(haystack, word) {
					overlap += priorQueryUnit
				}
			}
		}
		if overlap > priorQueryCap {
			overlap = priorQueryCap
		}
		boost += overlap
	}

	return boost
}

// temporalBoost computes §4.5's always-applied temporal boost fraction for
// a result at the given instant.
func temporalBoost(in Input, now time.Time) float64 {
	var boost float64

	category, _ := in.Metadata.Get("category").AsString()
	if category == "" {
		category = in.Category
	}

	if hours, ok := hourOfDayByCategory[category]; ok && containsInt(hours, now.Hour()) {
		boost += hourOfDayBoost
	}
	if days, ok := dayOfWeekByCategory[category]; ok && containsWeekday(days, now.Weekday()) {
		boost += dayOfWeekBoost
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		if s, ok := in.Metadata.Get("createdAt").AsString(); ok {
			if parsed, err := time.Parse(time.RFC3339, s); err == nil {
				createdAt = parsed
			}
		}
	}
	if !createdAt.IsZero() {
		age := now.Sub(createdAt).Hours()
		switch {
		case age < 1:
			boost += recencyBoost1h
		case age < 24:
			boost += recencyBoost24h
		case age < 168:
			boost += recencyBoost7d
		}
	}

	return boost
}

// haversineKm returns the great-circle distance in kilometers between two
// lat/lng points.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func containsFold(items []string, target string) bool {
	if target == "" {
		return false
	}
	for _, item := range items {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}

func tagsContainFold(tags []string, interest string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), strings.ToLower(interest)) {
			return true
		}
	}
	return false
}

func containsInt(items []int, target int) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func containsWeekday(items []time.Weekday, target time.Weekday) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
