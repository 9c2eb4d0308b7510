package models

import (
	"testing"
	"time"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestDateKeyPrefersPostdate(t *testing.T) {
	post := time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)
	c := Content{
		CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Postdate:  &post,
	}
	if got := c.DateKey(); got != "2024-05-20" {
		t.Errorf("expected 2024-05-20, got %s", got)
	}

	c.Postdate = nil
	if got := c.DateKey(); got != "2024-05-01" {
		t.Errorf("expected fallback to 2024-05-01, got %s", got)
	}
}

func TestDateKeyUsesUTCBoundary(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 23:30 EST is already 04:30 the next day in UTC.
	late := time.Date(2024, 3, 10, 23, 30, 0, 0, est)
	c := Content{Postdate: &late}
	if got := c.DateKey(); got != "2024-03-11" {
		t.Errorf("expected UTC day 2024-03-11, got %s", got)
	}
}

func TestContentInfoNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   *ContentInfo
		want *ContentInfo
	}{
		{"nil stays nil", nil, nil},
		{"all empty collapses to nil", &ContentInfo{}, nil},
		{
			"zero and negative dropped",
			&ContentInfo{Images: intPtr(0), Videos: intPtr(-3), Size: int64Ptr(0)},
			nil,
		},
		{
			"positive fields survive",
			&ContentInfo{Images: intPtr(12), Size: int64Ptr(2048)},
			&ContentInfo{Images: intPtr(12), Size: int64Ptr(2048)},
		},
		{
			"mixed keeps only positive",
			&ContentInfo{Images: intPtr(3), Videos: intPtr(0)},
			&ContentInfo{Images: intPtr(3)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got == nil {
				return
			}
			if !intPtrEq(got.Images, tt.want.Images) ||
				!intPtrEq(got.Videos, tt.want.Videos) ||
				!int64PtrEq(got.Size, tt.want.Size) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func intPtrEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func int64PtrEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestHasTag(t *testing.T) {
	c := Content{Tags: []string{"beach", "solo"}}
	if !c.HasTag("solo") {
		t.Error("expected solo to match")
	}
	if c.HasTag("gym") {
		t.Error("gym should not match")
	}
	if c.HasTag("") {
		t.Error("empty tag should not match")
	}
}
