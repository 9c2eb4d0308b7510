package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"mediacat/models"
	"mediacat/store"
)

// DatesPerPage is the page window: up to 30 distinct content-bearing days,
// not 30 calendar days. Days without eligible content are skipped entirely.
const DatesPerPage = 30

// ErrInvalidPage is returned for non-positive page numbers.
var ErrInvalidPage = errors.New("page must be a positive integer")

// DateGroup is one day's bucket of eligible content, assembled per request
// and never persisted. Count always equals len(Contents).
type DateGroup struct {
	Date     string           `json:"date"`
	Contents []models.Content `json:"contents"`
	Count    int              `json:"count"`
}

// DatePage is one page of date buckets plus the continuation signal.
type DatePage struct {
	ContentGroups  []DateGroup `json:"contentGroups"`
	HasMoreContent bool        `json:"hasMoreContent"`
	CurrentPage    int         `json:"currentPage"`
}

// CatalogService answers the date-bucketed catalog queries. It is stateless
// and read-only: every call is an independent query sequence against the
// injected store.
type CatalogService struct {
	Store  store.ContentStore
	Logger *zap.Logger
}

// NewCatalogService builds a catalog service over the given store handle.
func NewCatalogService(st store.ContentStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{Store: st, Logger: logger}
}

// ContentByDateGroups returns page (1-indexed) of the catalog under f:
// discover the window of distinct effective dates, fetch the matching rows,
// regroup them by day, and probe whether older eligible days remain.
func (s *CatalogService) ContentByDateGroups(ctx context.Context, page int, f store.Filter) (*DatePage, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}
	// Any numeric page is valid input, including ones big enough to
	// overflow the offset product into a negative number. Pages past this
	// bound lie beyond any possible catalog: serve the empty terminal page.
	if page-1 > math.MaxInt/DatesPerPage {
		return &DatePage{ContentGroups: []DateGroup{}, CurrentPage: page}, nil
	}

	dates, err := s.Store.DistinctContentDates(ctx, f, DatesPerPage, (page-1)*DatesPerPage)
	if err != nil {
		return nil, fmt.Errorf("discover content dates: %w", err)
	}
	if len(dates) == 0 {
		// Valid terminal state: nothing on this page, nothing older.
		return &DatePage{ContentGroups: []DateGroup{}, CurrentPage: page}, nil
	}

	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = d.Date
	}

	rows, err := s.Store.ContentByDates(ctx, f, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch content rows: %w", err)
	}

	groups, dropped := assembleGroups(dates, rows)
	if dropped > 0 {
		// A row whose recomputed day matches none of the discovered days
		// means the two sides disagree on the day boundary. Not a
		// client-visible error, but it is a bug.
		s.Logger.Warn("content rows dropped during bucket assembly",
			zap.Int("dropped", dropped),
			zap.Int("page", page))
	}
	for i := range groups {
		if groups[i].Count != dates[i].Count {
			s.Logger.Warn("bucket count diverged from discovery count",
				zap.String("date", groups[i].Date),
				zap.Int("assembled", groups[i].Count),
				zap.Int("discovered", dates[i].Count))
		}
	}

	hasMore, err := s.Store.HasOlderContent(ctx, f, keys[len(keys)-1])
	if err != nil {
		return nil, fmt.Errorf("probe older content: %w", err)
	}

	return &DatePage{
		ContentGroups:  groups,
		HasMoreContent: hasMore,
		CurrentPage:    page,
	}, nil
}

// assembleGroups partitions rows into one bucket per discovered date, in
// discovery order. Dates with no rows stay as empty buckets; rows matching
// no date are counted as dropped.
func assembleGroups(dates []store.DateCount, rows []models.Content) ([]DateGroup, int) {
	index := make(map[string]int, len(dates))
	groups := make([]DateGroup, len(dates))
	for i, d := range dates {
		groups[i] = DateGroup{Date: d.Date, Contents: []models.Content{}}
		index[d.Date] = i
	}

	dropped := 0
	for _, r := range rows {
		i, ok := index[r.DateKey()]
		if !ok {
			dropped++
			continue
		}
		groups[i].Contents = append(groups[i].Contents, r)
	}
	for i := range groups {
		groups[i].Count = len(groups[i].Contents)
	}
	return groups, dropped
}

// AvailableCategories returns the sorted, deduplicated set of tags in use
// across eligible records, optionally restricted by ethnicity. It feeds the
// filter control, so it deliberately takes no category or date dimension.
func (s *CatalogService) AvailableCategories(ctx context.Context, ethnicity string) ([]string, error) {
	sets, err := s.Store.TagSets(ctx, ethnicity)
	if err != nil {
		return nil, fmt.Errorf("enumerate tag sets: %w", err)
	}

	seen := make(map[string]struct{})
	categories := []string{}
	for _, set := range sets {
		for _, tag := range set {
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			categories = append(categories, tag)
		}
	}
	sort.Strings(categories)
	return categories, nil
}
