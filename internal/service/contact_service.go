package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/villarosa/admin-api/internal/domain"
	mailpkg "github.com/villarosa/admin-api/internal/mail"
	"github.com/villarosa/admin-api/internal/repository"
)

// ContactSubmission is the public contact-form payload.
type ContactSubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type ContactService struct {
	messages repository.ContactRepository
	mailer   mailpkg.Mailer
	notifyTo string
}

func NewContactService(messages repository.ContactRepository, mailer mailpkg.Mailer, notifyTo string) *ContactService {
	return &ContactService{messages: messages, mailer: mailer, notifyTo: notifyTo}
}

// Submit validates and persists a message, then notifies the operator.
// Notification is best effort: a mail failure never fails the request.
func (s *ContactService) Submit(ctx context.Context, sub ContactSubmission) (*domain.ContactMessage, error) {
	if err := validateSubmission(&sub); err != nil {
		return nil, err
	}
	msg := &domain.ContactMessage{
		ID:        uuid.NewString(),
		Name:      sub.Name,
		Email:     sub.Email,
		Phone:     sub.Phone,
		Message:   sub.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.notify(ctx, msg)
	return msg, nil
}

func (s *ContactService) ListPaged(ctx context.Context, page, pageSize int) (repository.PageResult[domain.ContactMessage], error) {
	return s.messages.ListPaged(ctx, repository.PageRequest{Page: page, PageSize: pageSize})
}

func (s *ContactService) notify(ctx context.Context, msg *domain.ContactMessage) {
	if s.mailer == nil || s.notifyTo == "" {
		return
	}
	body := fmt.Sprintf("New contact message\n\nFrom: %s <%s>\nPhone: %s\n\n%s\n",
		msg.Name, msg.Email, msg.Phone, msg.Message)
	if err := s.mailer.Send(ctx, s.notifyTo, "New contact message from "+msg.Name, body); err != nil {
		slog.WarnContext(ctx, "contact notification failed", "message_id", msg.ID, "error", err)
	}
}

func validateSubmission(sub *ContactSubmission) error {
	fields := map[string]string{}
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Phone = strings.TrimSpace(sub.Phone)
	sub.Message = strings.TrimSpace(sub.Message)

	if sub.Name == "" {
		fields["name"] = "name is required"
	} else if len(sub.Name) > 200 {
		fields["name"] = "name is too long"
	}
	if sub.Email == "" {
		fields["email"] = "email is required"
	} else if _, err := mail.ParseAddress(sub.Email); err != nil {
		fields["email"] = "email is not valid"
	}
	if len(sub.Phone) > 40 {
		fields["phone"] = "phone is too long"
	}
	if sub.Message == "" {
		fields["message"] = "message is required"
	} else if len(sub.Message) > 5000 {
		fields["message"] = "message is too long"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}
