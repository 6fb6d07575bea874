package catalog

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewear/internal/models"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 12, 0, 0, 0, time.UTC)
}

func fixture() []models.Listing {
	return []models.Listing{
		{ID: "1", Title: "Vintage Denim Jacket", Description: "Classic 90s denim", Category: "Outerwear", Condition: models.ConditionLikeNew, Tags: []string{"vintage", "denim"}, PointValue: 75, Status: models.ListingAvailable, UploadedAt: day(20), OwnerID: "a"},
		{ID: "2", Title: "Silk Floral Blouse", Description: "Elegant silk blouse", Category: "Tops", Condition: models.ConditionNew, Tags: []string{"silk", "Professional"}, PointValue: 100, Status: models.ListingAvailable, UploadedAt: day(18), OwnerID: "b"},
		{ID: "3", Title: "Wool Winter Coat", Description: "Warm and stylish", Category: "Outerwear", Condition: models.ConditionGood, Tags: []string{"wool"}, PointValue: 120, Status: models.ListingPending, UploadedAt: day(15), OwnerID: "c"},
		{ID: "4", Title: "designer sneakers", Description: "Limited edition", Category: "Shoes", Condition: models.ConditionLikeNew, Tags: []string{"designer"}, PointValue: 75, Status: models.ListingAvailable, UploadedAt: day(22), OwnerID: "a"},
		{ID: "5", Title: "Éclair Print Scarf", Description: "Silk scarf", Category: "Accessories", Condition: models.ConditionFair, PointValue: 20, Status: models.ListingSwapped, UploadedAt: day(10), OwnerID: "b"},
	}
}

func ids(listings []models.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

func TestFilterMatches(t *testing.T) {
	all := fixture()

	testCases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "no criteria", filter: Filter{}, want: []string{"1", "2", "3", "4", "5"}},
		{name: "available only", filter: Filter{Status: models.ListingAvailable}, want: []string{"1", "2", "4"}},
		{name: "search title case-insensitive", filter: Filter{Search: "DENIM"}, want: []string{"1"}},
		{name: "search description", filter: Filter{Search: "silk"}, want: []string{"2", "5"}},
		{name: "search tags", filter: Filter{Search: "profess"}, want: []string{"2"}},
		{name: "category", filter: Filter{Category: "Outerwear"}, want: []string{"1", "3"}},
		{name: "condition", filter: Filter{Condition: models.ConditionLikeNew}, want: []string{"1", "4"}},
		{name: "owner", filter: Filter{OwnerID: "b"}, want: []string{"2", "5"}},
		{name: "combined", filter: Filter{Status: models.ListingAvailable, Category: "Outerwear", Search: "jacket"}, want: []string{"1"}},
		{name: "nothing", filter: Filter{Search: "tuxedo"}, want: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(Select(all, tc.filter, "")))
		})
	}
}

func TestSort(t *testing.T) {
	testCases := []struct {
		key  SortKey
		want []string
	}{
		{key: SortNewest, want: []string{"4", "1", "2", "3", "5"}},
		{key: SortOldest, want: []string{"5", "3", "2", "1", "4"}},
		{key: SortPointsLow, want: []string{"5", "1", "4", "2", "3"}},
		{key: SortPointsHigh, want: []string{"3", "2", "1", "4", "5"}},
		{key: SortTitle, want: []string{"4", "5", "2", "1", "3"}},
		{key: "", want: []string{"1", "2", "3", "4", "5"}},
	}

	for _, tc := range testCases {
		t.Run(string(tc.key), func(t *testing.T) {
			all := fixture()
			Sort(all, tc.key)
			assert.Equal(t, tc.want, ids(all))
		})
	}
}

func TestSelectDoesNotModifyInput(t *testing.T) {
	all := fixture()
	_ = Select(all, Filter{}, SortPointsHigh)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(all))
}

func TestRunPagination(t *testing.T) {
	all := fixture()

	page := Run(all, Query{Sort: SortOldest, Page: 2, Limit: 2})
	assert.Equal(t, []string{"2", "1"}, ids(page.Items))
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)

	last := Run(all, Query{Sort: SortOldest, Page: 3, Limit: 2})
	assert.Equal(t, []string{"4"}, ids(last.Items))
	assert.False(t, last.HasNext)

	beyond := Run(all, Query{Page: 9, Limit: 2})
	assert.Empty(t, beyond.Items)

	for _, huge := range []int{100000000000000000, math.MaxInt} {
		far := Run(all, Query{Page: huge, Limit: MaxLimit})
		assert.Empty(t, far.Items)
		assert.Equal(t, huge, far.Page)
		assert.False(t, far.HasNext)
	}

	defaults := Run(all, Query{Page: -1, Limit: 0})
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, DefaultLimit, defaults.Limit)
	assert.Len(t, defaults.Items, 5)

	capped := Run(all, Query{Limit: MaxLimit + 1})
	assert.Equal(t, MaxLimit, capped.Limit)
}

func TestRelated(t *testing.T) {
	all := fixture()
	all = append(all,
		models.Listing{ID: "6", Category: "Outerwear", Status: models.ListingAvailable},
		models.Listing{ID: "7", Category: "Outerwear", Status: models.ListingAvailable},
		models.Listing{ID: "8", Category: "Outerwear", Status: models.ListingAvailable},
		models.Listing{ID: "9", Category: "Outerwear", Status: models.ListingAvailable},
	)

	related := Related(all, &all[0])
	require.Len(t, related, RelatedLimit)
	assert.Equal(t, []string{"6", "7", "8", "9"}, ids(related), "self and pending listings are skipped")
}
