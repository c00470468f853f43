package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventrsvp/internal/domain"
)

type notificationService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewNotificationService returns a NotificationService that uses the given
// Mailer and template renderer.
func NewNotificationService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.NotificationService {
	return &notificationService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendRSVPConfirmation sends the registration confirmation using the
// "rsvp_confirmation" template.
func (s *notificationService) SendRSVPConfirmation(ctx context.Context, data *domain.RSVPConfirmationData) error {
	if data == nil {
		return fmt.Errorf("rsvp confirmation data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("rsvp_confirmation", data)
	if err != nil {
		return fmt.Errorf("render rsvp_confirmation template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send rsvp confirmation email: %w", err)
	}
	s.logger.InfoContext(ctx, "rsvp confirmation sent", "email", data.Email, "event", data.EventName)
	return nil
}

// SendGuestConfirmation sends the guest confirmation to the registrant who
// added the guest, using the "guest_confirmation" template.
func (s *notificationService) SendGuestConfirmation(ctx context.Context, data *domain.GuestConfirmationData) error {
	if data == nil {
		return fmt.Errorf("guest confirmation data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("guest_confirmation", data)
	if err != nil {
		return fmt.Errorf("render guest_confirmation template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send guest confirmation email: %w", err)
	}
	s.logger.InfoContext(ctx, "guest confirmation sent", "email", data.Email, "event", data.EventName)
	return nil
}
