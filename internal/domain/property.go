package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Property is a rental listing document. Booked date ranges are embedded in
// the document rather than normalized out, matching the shape the public site
// reads.
type Property struct {
	ID          string       `gorm:"primaryKey;size:64" json:"id"`
	Name        string       `gorm:"size:200;not null" json:"name"`
	Slug        string       `gorm:"size:200;uniqueIndex" json:"slug"`
	Description string       `gorm:"type:text" json:"description"`
	Images      StringList   `gorm:"type:text" json:"images"`
	Bookings    BookingList  `gorm:"type:text" json:"bookings"`
	Published   bool         `json:"published"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// BookedRange marks a span of dates as unavailable. End is exclusive.
type BookedRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Note  string    `json:"note,omitempty"`
}

func (r BookedRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.Start.Before(r.End)
}

type BookingList []BookedRange

func (l BookingList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]BookedRange(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *BookingList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]BookedRange)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]BookedRange)(l))
	default:
		return errors.New("unsupported source type for BookingList")
	}
}
