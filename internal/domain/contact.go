package domain

import "time"

// ContactMessage is a submission from the public contact form.
type ContactMessage struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Email     string    `gorm:"size:320;not null" json:"email"`
	Phone     string    `gorm:"size:40" json:"phone,omitempty"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
