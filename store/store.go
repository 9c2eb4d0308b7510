// Package store provides access to the content catalog's backing records.
//
// The catalog engine talks to a ContentStore handle passed in at
// construction time; PostgresStore is the production implementation and
// MemoryStore an application-level one used by the test suite and by any
// backend lacking native grouping/windowing support.
package store

import (
	"context"

	"mediacat/models"
)

// Filter restricts catalog reads. Ethnicity matches the owning model's
// attribute exactly; Category is set-containment against the record's tags.
// Empty fields impose no restriction.
type Filter struct {
	Ethnicity string
	Category  string
}

// DateCount is one distinct content-bearing day. Date is an ISO calendar
// date (YYYY-MM-DD, UTC day boundary); Count is the number of eligible
// records on that day under the filter that produced it.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ContentStore is the query contract the catalog engine depends on. All
// methods are read-only and observe only eligible records (is_active and
// status = active). Date parameters and results are ISO date strings derived
// at the UTC day boundary, so both implementations share one day policy.
type ContentStore interface {
	// DistinctContentDates returns up to limit distinct effective dates
	// that carry eligible content under f, newest first, after skipping
	// offset such dates.
	DistinctContentDates(ctx context.Context, f Filter, limit, offset int) ([]DateCount, error)

	// HasOlderContent reports whether any eligible date strictly older
	// than before exists under f. Implementations must answer with an
	// existence probe, not a scan.
	HasOlderContent(ctx context.Context, f Filter, before string) (bool, error)

	// ContentByDates returns every eligible record whose effective date is
	// in dates, with the owning Model populated, ordered by effective
	// timestamp descending and id ascending on ties.
	ContentByDates(ctx context.Context, f Filter, dates []string) ([]models.Content, error)

	// TagSets returns the tag set of every eligible record that has tags,
	// optionally restricted to models of the given ethnicity.
	TagSets(ctx context.Context, ethnicity string) ([][]string, error)
}
