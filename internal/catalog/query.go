// Package catalog implements the read side of the listing catalog: filtering,
// sorting and pagination over an in-memory slice of listings.
// All functions are pure and never modify their input.
package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"rewear/internal/models"
)

// SortKey selects the order of a listing query.
type SortKey string

const (
	SortNewest     SortKey = "newest"
	SortOldest     SortKey = "oldest"
	SortPointsLow  SortKey = "points-low"
	SortPointsHigh SortKey = "points-high"
	SortTitle      SortKey = "title"
)

// Valid reports whether k names a known order. The empty key keeps input order.
func (k SortKey) Valid() bool {
	switch k {
	case "", SortNewest, SortOldest, SortPointsLow, SortPointsHigh, SortTitle:
		return true
	}
	return false
}

// Pagination defaults.
const (
	DefaultLimit = 20
	MaxLimit     = 100
	RelatedLimit = 4
)

// Filter narrows a listing query. Zero values disable the corresponding criterion.
type Filter struct {
	Search    string
	Category  string
	Condition models.Condition
	Status    models.ListingStatus
	OwnerID   string
}

// Query describes a complete browse request.
type Query struct {
	Filter
	Sort  SortKey
	Page  int
	Limit int
}

// Page is one window of query results with its metadata.
type Page struct {
	Items      []models.Listing `json:"items"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int              `json:"total"`
	TotalPages int              `json:"totalPages"`
	HasNext    bool             `json:"hasNext"`
	HasPrev    bool             `json:"hasPrev"`
}

// Matches reports whether the listing satisfies every criterion of the filter.
// Search is a case-insensitive substring match over title, description and tags.
func (f Filter) Matches(listing *models.Listing) bool {
	if f.Status != "" && listing.Status != f.Status {
		return false
	}
	if f.Category != "" && listing.Category != f.Category {
		return false
	}
	if f.Condition != "" && listing.Condition != f.Condition {
		return false
	}
	if f.OwnerID != "" && listing.OwnerID != f.OwnerID {
		return false
	}
	if f.Search == "" {
		return true
	}

	term := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(listing.Title), term) || strings.Contains(strings.ToLower(listing.Description), term) {
		return true
	}
	for _, tag := range listing.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// Select returns the listings matching the filter, sorted by key.
func Select(all []models.Listing, filter Filter, key SortKey) []models.Listing {
	selected := make([]models.Listing, 0, len(all))
	for i := range all {
		if filter.Matches(&all[i]) {
			selected = append(selected, all[i])
		}
	}
	Sort(selected, key)
	return selected
}

// Sort orders listings in place. Equal keys keep their relative order.
func Sort(listings []models.Listing, key SortKey) {
	switch key {
	case SortNewest:
		sort.SliceStable(listings, func(i, j int) bool { return listings[i].UploadedAt.After(listings[j].UploadedAt) })
	case SortOldest:
		sort.SliceStable(listings, func(i, j int) bool { return listings[i].UploadedAt.Before(listings[j].UploadedAt) })
	case SortPointsLow:
		sort.SliceStable(listings, func(i, j int) bool { return listings[i].PointValue < listings[j].PointValue })
	case SortPointsHigh:
		sort.SliceStable(listings, func(i, j int) bool { return listings[i].PointValue > listings[j].PointValue })
	case SortTitle:
		collator := collate.New(language.English, collate.IgnoreCase)
		sort.SliceStable(listings, func(i, j int) bool {
			return collator.CompareString(listings[i].Title, listings[j].Title) < 0
		})
	}
}

// Run filters, sorts and paginates the listings according to the query.
func Run(all []models.Listing, query Query) *Page {
	selected := Select(all, query.Filter, query.Sort)

	page, limit := normalizeWindow(query.Page, query.Limit)
	total := len(selected)
	totalPages := total / limit
	if total%limit > 0 {
		totalPages++
	}

	start := total
	if page <= totalPages {
		start = (page - 1) * limit
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &Page{
		Items:      selected[start:end],
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Related returns up to RelatedLimit available listings sharing the category of
// the given listing, excluding the listing itself.
func Related(all []models.Listing, listing *models.Listing) []models.Listing {
	related := make([]models.Listing, 0, RelatedLimit)
	for _, candidate := range all {
		if len(related) == RelatedLimit {
			break
		}
		if candidate.ID == listing.ID || candidate.Category != listing.Category || candidate.Status != models.ListingAvailable {
			continue
		}
		related = append(related, candidate)
	}
	return related
}

func normalizeWindow(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
