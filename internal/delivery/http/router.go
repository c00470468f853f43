package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventrsvp/internal/delivery/http/controllers"
	"eventrsvp/internal/delivery/http/middleware"
	"eventrsvp/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	verifier domain.TokenVerifier,
	authController *controllers.AuthController,
	eventController *controllers.EventController,
	rsvpController *controllers.RSVPController,
	webhookController *controllers.WebhookController,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier)

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Events
	mux.HandleFunc("POST /events", auth(eventController.CreateEvent))
	mux.HandleFunc("GET /events", eventController.ListEvents)
	mux.HandleFunc("GET /events/{eventID}", eventController.GetEvent)
	mux.HandleFunc("GET /events/{eventID}/participants", auth(eventController.ListParticipants))
	mux.HandleFunc("GET /events/{eventID}/participants/count", eventController.ParticipantCount)

	// Registrations
	mux.HandleFunc("POST /events/{eventID}/rsvp", auth(rsvpController.Register))
	mux.HandleFunc("GET /events/{eventID}/rsvp", auth(rsvpController.GetRegistration))
	mux.HandleFunc("DELETE /events/{eventID}/rsvp", auth(rsvpController.Quit))
	mux.HandleFunc("POST /events/{eventID}/rsvp/guests", auth(rsvpController.AddGuest))
	mux.HandleFunc("PUT /events/{eventID}/rsvp/guests/count", auth(rsvpController.SetGuestCount))
	mux.HandleFunc("GET /events/{eventID}/rsvp/meeting", auth(rsvpController.GetMeeting))

	// Payment gateway callbacks. Authenticated by signature, not by token.
	mux.HandleFunc("POST /webhooks/payment", webhookController.HandleStatusChange)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
