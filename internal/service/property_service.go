package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/villarosa/admin-api/internal/domain"
	"github.com/villarosa/admin-api/internal/repository"
)

// PropertyInput is the write shape for create and full update.
type PropertyInput struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Published   bool     `json:"published"`
}

type PropertyService struct {
	properties repository.PropertyRepository
}

func NewPropertyService(properties repository.PropertyRepository) *PropertyService {
	return &PropertyService{properties: properties}
}

func (s *PropertyService) List(ctx context.Context) ([]domain.Property, error) {
	return s.properties.List(ctx)
}

func (s *PropertyService) Get(ctx context.Context, id string) (*domain.Property, error) {
	return s.properties.Find(ctx, id)
}

func (s *PropertyService) Create(ctx context.Context, input PropertyInput) (*domain.Property, error) {
	if err := validatePropertyInput(&input); err != nil {
		return nil, err
	}
	p := &domain.Property{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Slug:        input.Slug,
		Description: input.Description,
		Images:      input.Images,
		Published:   input.Published,
	}
	if err := s.properties.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PropertyService) Update(ctx context.Context, id string, input PropertyInput) (*domain.Property, error) {
	if err := validatePropertyInput(&input); err != nil {
		return nil, err
	}
	p, err := s.properties.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = input.Name
	p.Slug = input.Slug
	p.Description = input.Description
	p.Images = input.Images
	p.Published = input.Published
	if err := s.properties.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PropertyService) Delete(ctx context.Context, id string) error {
	return s.properties.Delete(ctx, id)
}

// ReplaceBookings swaps the property's booked-range list wholesale after
// validating every range.
func (s *PropertyService) ReplaceBookings(ctx context.Context, id string, bookings []domain.BookedRange) (*domain.Property, error) {
	fields := map[string]string{}
	for i, b := range bookings {
		if !b.Valid() {
			fields[fmt.Sprintf("bookings[%d]", i)] = "start must be before end"
		}
	}
	if len(fields) > 0 {
		return nil, NewValidationError(fields)
	}
	if err := s.properties.UpdateBookings(ctx, id, domain.BookingList(bookings)); err != nil {
		return nil, err
	}
	return s.properties.Find(ctx, id)
}

func validatePropertyInput(input *PropertyInput) error {
	fields := map[string]string{}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		fields["name"] = "name is required"
	}
	input.Slug = strings.TrimSpace(input.Slug)
	if input.Slug == "" {
		input.Slug = slugify(input.Name)
	}
	if len(input.Description) > 10000 {
		fields["description"] = "description is too long"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
