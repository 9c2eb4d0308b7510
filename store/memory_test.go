package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mediacat/models"
)

func seedContent(t *testing.T, id uint, modelID string, effective time.Time) models.Content {
	t.Helper()
	return models.Content{
		ID:        id,
		ModelID:   modelID,
		Slug:      fmt.Sprintf("seed-%d", id),
		Title:     fmt.Sprintf("Seed %d", id),
		URL:       fmt.Sprintf("https://cdn.example.com/%d", id),
		Type:      models.TypeImage,
		Status:    models.StatusActive,
		IsActive:  true,
		CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Postdate:  &effective,
	}
}

func TestDistinctContentDatesWindowing(t *testing.T) {
	s := NewMemoryStore()
	s.AddModel(models.Model{ModelID: "m1", Name: "Ana", Ethnicity: "latina"})
	for i := 1; i <= 5; i++ {
		s.AddContent(seedContent(t, uint(i), "m1",
			time.Date(2024, 2, i, 12, 0, 0, 0, time.UTC)))
	}
	// A second record on the newest day.
	s.AddContent(seedContent(t, 6, "m1",
		time.Date(2024, 2, 5, 8, 0, 0, 0, time.UTC)))

	dates, err := s.DistinctContentDates(context.Background(), Filter{}, 3, 0)
	if err != nil {
		t.Fatalf("DistinctContentDates failed: %v", err)
	}
	want := []DateCount{
		{Date: "2024-02-05", Count: 2},
		{Date: "2024-02-04", Count: 1},
		{Date: "2024-02-03", Count: 1},
	}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Errorf("window[%d]: got %+v, want %+v", i, dates[i], want[i])
		}
	}

	tail, err := s.DistinctContentDates(context.Background(), Filter{}, 3, 3)
	if err != nil {
		t.Fatalf("DistinctContentDates tail failed: %v", err)
	}
	if len(tail) != 2 || tail[0].Date != "2024-02-02" || tail[1].Date != "2024-02-01" {
		t.Errorf("unexpected tail window: %+v", tail)
	}

	past, err := s.DistinctContentDates(context.Background(), Filter{}, 3, 6)
	if err != nil {
		t.Fatalf("DistinctContentDates past-end failed: %v", err)
	}
	if len(past) != 0 {
		t.Errorf("offset past end should yield nothing, got %+v", past)
	}

	// A negative offset (an overflowed page computation upstream) must be
	// treated as past-the-end, not panic as a slice bound.
	neg, err := s.DistinctContentDates(context.Background(), Filter{}, 3, -6446744073709551646)
	if err != nil {
		t.Fatalf("DistinctContentDates negative offset failed: %v", err)
	}
	if len(neg) != 0 {
		t.Errorf("negative offset should yield nothing, got %+v", neg)
	}
}

func TestHasOlderContentProbe(t *testing.T) {
	s := NewMemoryStore()
	s.AddModel(models.Model{ModelID: "m1", Name: "Ana", Ethnicity: "latina"})
	s.AddContent(seedContent(t, 1, "m1", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)))
	s.AddContent(seedContent(t, 2, "m1", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	ctx := context.Background()
	if ok, err := s.HasOlderContent(ctx, Filter{}, "2024-02-05"); err != nil || !ok {
		t.Errorf("expected older content before 2024-02-05, got %v err=%v", ok, err)
	}
	if ok, err := s.HasOlderContent(ctx, Filter{}, "2024-02-01"); err != nil || ok {
		t.Errorf("expected no older content before 2024-02-01, got %v err=%v", ok, err)
	}
	// The probe honors the filter: nothing older matches ethnicity=asian.
	if ok, err := s.HasOlderContent(ctx, Filter{Ethnicity: "asian"}, "2024-02-05"); err != nil || ok {
		t.Errorf("filtered probe should find nothing, got %v err=%v", ok, err)
	}
}

func TestContentByDatesOrdering(t *testing.T) {
	s := NewMemoryStore()
	s.AddModel(models.Model{ModelID: "m1", Name: "Ana", Ethnicity: "latina"})
	s.AddContent(seedContent(t, 10, "m1", time.Date(2024, 2, 5, 10, 0, 0, 0, time.UTC)))
	s.AddContent(seedContent(t, 11, "m1", time.Date(2024, 2, 5, 12, 0, 0, 0, time.UTC)))
	// Same timestamp as id 10: the lower id wins the tie.
	s.AddContent(seedContent(t, 9, "m1", time.Date(2024, 2, 5, 10, 0, 0, 0, time.UTC)))
	s.AddContent(seedContent(t, 12, "m1", time.Date(2024, 2, 4, 23, 0, 0, 0, time.UTC)))

	rows, err := s.ContentByDates(context.Background(), Filter{},
		[]string{"2024-02-05", "2024-02-04"})
	if err != nil {
		t.Fatalf("ContentByDates failed: %v", err)
	}
	gotIDs := make([]uint, len(rows))
	for i, r := range rows {
		gotIDs[i] = r.ID
	}
	wantIDs := []uint{11, 9, 10, 12}
	if len(gotIDs) != len(wantIDs) {
		t.Fatalf("expected ids %v, got %v", wantIDs, gotIDs)
	}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("expected ids %v, got %v", wantIDs, gotIDs)
		}
	}

	if rows[0].Model.Name != "Ana" {
		t.Errorf("expected model decoration, got %+v", rows[0].Model)
	}
}

func TestContentByDatesIgnoresUnrequestedDays(t *testing.T) {
	s := NewMemoryStore()
	s.AddModel(models.Model{ModelID: "m1", Name: "Ana", Ethnicity: "latina"})
	s.AddContent(seedContent(t, 1, "m1", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)))
	s.AddContent(seedContent(t, 2, "m1", time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC)))

	rows, err := s.ContentByDates(context.Background(), Filter{}, []string{"2024-02-05"})
	if err != nil {
		t.Fatalf("ContentByDates failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 1 {
		t.Errorf("expected only the 2024-02-05 record, got %+v", rows)
	}

	empty, err := s.ContentByDates(context.Background(), Filter{}, nil)
	if err != nil {
		t.Fatalf("ContentByDates with no dates failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("no requested dates should yield no rows, got %+v", empty)
	}
}

func TestContentByDatesExcludesOrphanedRecords(t *testing.T) {
	s := NewMemoryStore()
	s.AddModel(models.Model{ModelID: "m1", Name: "Ana", Ethnicity: "latina"})
	s.AddContent(seedContent(t, 1, "m1", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)))
	// No model row exists for this owner.
	s.AddContent(seedContent(t, 2, "ghost", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)))

	rows, err := s.ContentByDates(context.Background(), Filter{}, []string{"2024-02-05"})
	if err != nil {
		t.Fatalf("ContentByDates failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 1 {
		t.Errorf("expected only the owned record, got %+v", rows)
	}
}

func TestTagSetsRespectEligibilityAndEthnicity(t *testing.T) {
	s := NewMemoryStore()
	s.AddModel(models.Model{ModelID: "m1", Name: "Ana", Ethnicity: "latina"})
	s.AddModel(models.Model{ModelID: "m2", Name: "Yui", Ethnicity: "asian"})

	tagged := seedContent(t, 1, "m1", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
	tagged.Tags = []string{"beach", "solo"}
	s.AddContent(tagged)

	other := seedContent(t, 2, "m2", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
	other.Tags = []string{"gym"}
	s.AddContent(other)

	hidden := seedContent(t, 3, "m1", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
	hidden.Tags = []string{"secret"}
	hidden.Status = models.StatusReported
	s.AddContent(hidden)

	untagged := seedContent(t, 4, "m1", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC))
	s.AddContent(untagged)

	all, err := s.TagSets(context.Background(), "")
	if err != nil {
		t.Fatalf("TagSets failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tag sets, got %d: %v", len(all), all)
	}

	latina, err := s.TagSets(context.Background(), "latina")
	if err != nil {
		t.Fatalf("TagSets(latina) failed: %v", err)
	}
	if len(latina) != 1 || latina[0][0] != "beach" {
		t.Errorf("expected only the latina model's tags, got %v", latina)
	}
}
