package domain

import "context"

// Mailer sends transactional email.
type Mailer interface {
	Send(to, subject, htmlBody, textBody string) error
}

// EmailTemplateRenderer renders a named email template with data and returns
// the subject and both bodies.
type EmailTemplateRenderer interface {
	Render(templateName string, data interface{}) (subject, htmlBody, textBody string, err error)
}

// RSVPConfirmationData feeds the registration confirmation email.
type RSVPConfirmationData struct {
	Email      string
	FirstName  string
	EventName  string
	EventStart string
}

// GuestConfirmationData feeds the guest confirmation email sent to the
// registrant who added the guest.
type GuestConfirmationData struct {
	Email     string
	FirstName string
	EventName string
}

// NotificationService sends registration notifications. Both operations are
// invoked fire-and-forget after a confirmed transition: failures are logged
// and never affect the registration itself.
type NotificationService interface {
	SendRSVPConfirmation(ctx context.Context, data *RSVPConfirmationData) error
	SendGuestConfirmation(ctx context.Context, data *GuestConfirmationData) error
}
