package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type AdminRole string

const (
	RoleAdmin AdminRole = "admin"
	RoleStaff AdminRole = "staff"
)

// AdminRecord is the document-store side of an administrator identity. The
// IsAdmin flag must stay consistent with Role == RoleAdmin and with the
// identity provider's custom claim; the admin directory reconciles the two.
type AdminRecord struct {
	SubjectID   string     `gorm:"primaryKey;size:128" json:"subject_id"`
	Email       string     `gorm:"size:320;index" json:"email"`
	Role        AdminRole  `gorm:"size:16;not null;default:staff" json:"role"`
	IsAdmin     bool       `gorm:"index" json:"is_admin"`
	Permissions StringList `gorm:"type:text" json:"permissions"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StringList stores a JSON-encoded string slice in a single text column,
// keeping the document-style shape of the record in a relational table.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]string)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(l))
	default:
		return errors.New("unsupported source type for StringList")
	}
}
