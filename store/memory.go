package store

import (
	"context"
	"sort"
	"sync"

	"mediacat/models"
)

// MemoryStore implements ContentStore with plain in-process passes over a
// record slice. It exists for backends without native distinct-date grouping
// and as the store the engine's test suite runs against; its observable
// behavior must match PostgresStore exactly.
type MemoryStore struct {
	mu       sync.RWMutex
	contents []models.Content
	models   map[string]models.Model
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{models: make(map[string]models.Model)}
}

// AddModel registers a model entity, keyed by its model_id.
func (s *MemoryStore) AddModel(m models.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[m.ModelID] = m
}

// AddContent appends a content record.
func (s *MemoryStore) AddContent(c models.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents = append(s.contents, c)
}

// matches applies eligibility plus the filter, mirroring the SQL predicate
// in PostgresStore.eligible.
func (s *MemoryStore) matches(c *models.Content, f Filter) bool {
	if !c.IsActive || c.Status != models.StatusActive {
		return false
	}
	if f.Ethnicity != "" {
		m, ok := s.models[c.ModelID]
		if !ok || m.Ethnicity != f.Ethnicity {
			return false
		}
	}
	if f.Category != "" && !c.HasTag(f.Category) {
		return false
	}
	return true
}

func (s *MemoryStore) DistinctContentDates(ctx context.Context, f Filter, limit, offset int) ([]DateCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for i := range s.contents {
		if s.matches(&s.contents[i], f) {
			counts[s.contents[i].DateKey()]++
		}
	}

	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	// ISO date strings sort like dates.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	// A negative offset is treated as past-the-end, never as a slice bound.
	if offset < 0 || offset >= len(dates) {
		return nil, nil
	}
	dates = dates[offset:]
	if len(dates) > limit {
		dates = dates[:limit]
	}

	out := make([]DateCount, len(dates))
	for i, d := range dates {
		out[i] = DateCount{Date: d, Count: counts[d]}
	}
	return out, nil
}

func (s *MemoryStore) HasOlderContent(ctx context.Context, f Filter, before string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.contents {
		if s.matches(&s.contents[i], f) && s.contents[i].DateKey() < before {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ContentByDates(ctx context.Context, f Filter, dates []string) ([]models.Content, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	wanted := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		wanted[d] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []models.Content
	for i := range s.contents {
		c := s.contents[i]
		if !s.matches(&c, f) {
			continue
		}
		if _, ok := wanted[c.DateKey()]; !ok {
			continue
		}
		// Inner-join semantics: a record without its owning model is not
		// served.
		m, ok := s.models[c.ModelID]
		if !ok {
			continue
		}
		c.Model = m
		rows = append(rows, c)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ti, tj := rows[i].EffectiveDate(), rows[j].EffectiveDate()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (s *MemoryStore) TagSets(ctx context.Context, ethnicity string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out [][]string
	for i := range s.contents {
		c := &s.contents[i]
		if !s.matches(c, Filter{Ethnicity: ethnicity}) || len(c.Tags) == 0 {
			continue
		}
		tags := make([]string, len(c.Tags))
		copy(tags, c.Tags)
		out = append(out, tags)
	}
	return out, nil
}
