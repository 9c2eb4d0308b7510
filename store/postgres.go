package store

import (
	"context"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"mediacat/models"
)

// effectiveDate truncates a record's effective timestamp to its UTC calendar
// day. This is the single place the SQL side defines the day boundary; it
// must stay in lockstep with models.Content.DateKey. The ::text casts at the
// call sites keep comparisons in ISO string space, matching the contract.
const effectiveDate = "(COALESCE(contents.postdate, contents.created_at) AT TIME ZONE 'UTC')::date"

// PostgresStore implements ContentStore on a GORM PostgreSQL handle.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore wraps an injected database handle.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// eligible builds the shared predicate every catalog read starts from.
// Discovery, fetch, probe and enumeration all go through here so the filter
// semantics cannot drift apart between them. Filter values are always bound,
// never interpolated.
func (s *PostgresStore) eligible(ctx context.Context, f Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Content{}).
		Where("contents.is_active = ? AND contents.status = ?", true, models.StatusActive)
	if f.Ethnicity != "" {
		q = q.Where(
			"EXISTS (SELECT 1 FROM models m WHERE m.model_id = contents.model_id AND m.ethnicity = ?)",
			f.Ethnicity,
		)
	}
	if f.Category != "" {
		q = q.Where("contents.tags @> ?", pq.Array([]string{f.Category}))
	}
	return q
}

// DistinctContentDates groups eligible records by effective date and windows
// the result, newest day first.
func (s *PostgresStore) DistinctContentDates(ctx context.Context, f Filter, limit, offset int) ([]DateCount, error) {
	var rows []DateCount
	err := s.eligible(ctx, f).
		Select(effectiveDate + "::text AS date, COUNT(*) AS count").
		Group(effectiveDate).
		Order(effectiveDate + " DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// HasOlderContent probes for one eligible record dated strictly before the
// given day, under the same filter.
func (s *PostgresStore) HasOlderContent(ctx context.Context, f Filter, before string) (bool, error) {
	sub := s.eligible(ctx, f).
		Select("1").
		Where(effectiveDate+"::text < ?", before).
		Limit(1)

	var exists bool
	err := s.db.WithContext(ctx).Raw("SELECT EXISTS (?)", sub).Scan(&exists).Error
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ContentByDates fetches every eligible record falling on one of the given
// days, decorated with its model. Records whose model row is missing are
// excluded (inner join). Ordering: effective timestamp descending, id
// ascending on equal timestamps.
func (s *PostgresStore) ContentByDates(ctx context.Context, f Filter, dates []string) ([]models.Content, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	var rows []models.Content
	err := s.eligible(ctx, f).
		InnerJoins("Model").
		Where(effectiveDate+"::text IN ?", dates).
		Order("COALESCE(contents.postdate, contents.created_at) DESC, contents.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TagSets returns the raw tag arrays of eligible tagged records; the caller
// owns deduplication and ordering.
func (s *PostgresStore) TagSets(ctx context.Context, ethnicity string) ([][]string, error) {
	var rows []pq.StringArray
	err := s.eligible(ctx, Filter{Ethnicity: ethnicity}).
		Where("contents.tags IS NOT NULL").
		Pluck("contents.tags", &rows).Error
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string(r)
	}
	return out, nil
}
