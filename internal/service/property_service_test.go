package service

import (
	"context"
	"testing"
	"time"

	"github.com/villarosa/admin-api/internal/domain"
	"github.com/villarosa/admin-api/internal/repository"
)

func newPropertyService(t *testing.T) (*PropertyService, repository.PropertyRepository) {
	t.Helper()
	repo := repository.NewPropertyRepository(openTestDB(t))
	return NewPropertyService(repo), repo
}

func TestPropertyCreateValidation(t *testing.T) {
	svc, _ := newPropertyService(t)

	_, err := svc.Create(context.Background(), PropertyInput{Name: "   "})
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, present := ve.Fields["name"]; !present {
		t.Fatalf("expected name field detail, got %+v", ve.Fields)
	}
}

func TestPropertyCreateDerivesSlug(t *testing.T) {
	svc, _ := newPropertyService(t)

	p, err := svc.Create(context.Background(), PropertyInput{Name: "Villa Rosa — Sea View!"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Slug != "villa-rosa-sea-view" {
		t.Fatalf("slug = %q", p.Slug)
	}
}

func TestReplaceBookingsRejectsInvertedRange(t *testing.T) {
	svc, _ := newPropertyService(t)
	p, err := svc.Create(context.Background(), PropertyInput{Name: "villa"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	start := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	_, err = svc.ReplaceBookings(context.Background(), p.ID, []domain.BookedRange{
		{Start: start, End: start.AddDate(0, 0, 3)},
		{Start: start, End: start.AddDate(0, 0, -1)},
	})
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, present := ve.Fields["bookings[1]"]; !present {
		t.Fatalf("expected indexed field detail, got %+v", ve.Fields)
	}
}

func TestReplaceBookingsReplacesWholesale(t *testing.T) {
	svc, _ := newPropertyService(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, PropertyInput{Name: "villa"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	start := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	if _, err := svc.ReplaceBookings(ctx, p.ID, []domain.BookedRange{
		{Start: start, End: start.AddDate(0, 0, 3)},
		{Start: start.AddDate(0, 1, 0), End: start.AddDate(0, 1, 7)},
	}); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	got, err := svc.ReplaceBookings(ctx, p.ID, []domain.BookedRange{
		{Start: start, End: start.AddDate(0, 0, 1), Note: "short stay"},
	})
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if len(got.Bookings) != 1 || got.Bookings[0].Note != "short stay" {
		t.Fatalf("bookings not replaced: %+v", got.Bookings)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Villa Rosa":          "villa-rosa",
		"  Casa  del  Mar  ":  "casa-del-mar",
		"Apartment #2 (2026)": "apartment-2-2026",
	}
	for input, want := range cases {
		if got := slugify(input); got != want {
			t.Fatalf("slugify(%q) = %q, want %q", input, got, want)
		}
	}
}
