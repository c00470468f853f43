package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"eventrsvp/internal/delivery/http/helpers"
	"eventrsvp/internal/domain"
	"eventrsvp/internal/payments"
)

const signatureHeader = "X-Signature"

// maxWebhookBody caps the request body read for signature verification.
const maxWebhookBody = 1 << 20

// WebhookPayload is the body the payment gateway posts on a status change.
// PaymentID is the gateway-side correlation id.
type WebhookPayload struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

type WebhookController struct {
	Logger   *slog.Logger
	Payments domain.PaymentService
	Repo     domain.PaymentRepository
	Secret   string
}

func NewWebhookController(logger *slog.Logger, svc domain.PaymentService, repo domain.PaymentRepository, secret string) *WebhookController {
	return &WebhookController{
		Logger:   logger,
		Payments: svc,
		Repo:     repo,
		Secret:   secret,
	}
}

// verifySignature checks the hex HMAC-SHA256 of body against the shared secret.
func (c *WebhookController) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleStatusChange godoc
// @Summary Payment gateway webhook
// @Description Receive a payment status change from the gateway. The body must be signed with HMAC-SHA256 in the X-Signature header. Deliveries are at-least-once: redelivered notifications are applied idempotently and still answered 200.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Signature header string true "Hex HMAC-SHA256 of the raw body"
// @Param body body WebhookPayload true "Status change"
// @Success 200 {object} helpers.APIResponse "data contains {\"received\": true}"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /webhooks/payment [post]
func (c *WebhookController) HandleStatusChange(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "cannot read body")
		return
	}
	if !c.verifySignature(body, r.Header.Get(signatureHeader)) {
		c.Logger.WarnContext(r.Context(), "webhook signature mismatch", "path", r.URL.Path)
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "invalid signature")
		return
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.PaymentID == "" || payload.Status == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid payload")
		return
	}

	payment, err := c.Repo.GetByGatewayID(r.Context(), payload.PaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "unknown payment")
			return
		}
		c.Logger.ErrorContext(r.Context(), "webhook lookup failed", "gateway_id", payload.PaymentID, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}

	switch domain.PaymentStatus(payload.Status) {
	case domain.PaymentStatusCompleted:
		err = c.Payments.Complete(r.Context(), payment)
	case domain.PaymentStatusCanceled:
		err = c.Payments.Cancel(r.Context(), payment)
	case domain.PaymentStatusRefused, domain.PaymentStatusAbandoned:
		err = c.Payments.MarkTerminal(r.Context(), payment, domain.PaymentStatus(payload.Status))
	case domain.PaymentStatusWaiting:
		// Nothing to apply; acknowledge so the gateway stops redelivering.
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]bool{"received": true})
		return
	default:
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "unknown status")
		return
	}
	if err != nil {
		if errors.Is(err, domain.ErrPaymentAlreadyCompleted) || errors.Is(err, domain.ErrPaymentAlreadyCanceled) {
			// Conflicting terminal statuses from the gateway: keep ours, log,
			// and acknowledge.
			c.Logger.WarnContext(r.Context(), "conflicting payment status from gateway",
				"payment_id", payment.ID, "current", payment.Status, "reported", payload.Status)
			helpers.WriteJSONSuccess(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
		c.Logger.ErrorContext(r.Context(), "webhook apply failed", "payment_id", payment.ID, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}

	if err := payments.NotifyStatusChange(r.Context(), c.Logger, payment); err != nil {
		c.Logger.ErrorContext(r.Context(), "status change listener failed", "payment_id", payment.ID, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal error")
		return
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]bool{"received": true})
}
