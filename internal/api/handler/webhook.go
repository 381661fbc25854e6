package handler

import (
	"errors"
	"net/http"

	"github.com/vfg2006/saas-metrics-api/internal/domain"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/ingesting"
	"github.com/vfg2006/saas-metrics-api/pkg/apiErrors"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
)

type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"eventId,omitempty"`
	EventType string `json:"eventType,omitempty"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

var verificationCodes = []struct {
	err  error
	code string
}{
	{ingesting.ErrMissingSignature, apiErrors.ErrMissingSignature},
	{ingesting.ErrInvalidSignature, apiErrors.ErrInvalidSignature},
	{ingesting.ErrInvalidMetadata, apiErrors.ErrInvalidMetadata},
	{ingesting.ErrPayloadTooLarge, apiErrors.ErrPayloadTooLarge},
}

// StripeWebhook verifies and processes one delivery. Anything short of an
// internal fault is acknowledged with 200 so the provider stops redelivering.
func StripeWebhook(service ingesting.Ingester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := service.Verify(r)
		if err != nil {
			writeVerificationError(w, r, err)
			return
		}

		result, err := service.Process(r.Context(), event)
		if err != nil {
			log.ForContext(r.Context()).WithError(err).WithFields(log.Fields{
				"event_id":   event.ID,
				"event_type": string(event.Type),
			}).Error("webhook: internal fault")
			writeJSON(w, r, http.StatusInternalServerError, WebhookResponse{Error: "internal error processing webhook"})
			return
		}

		resp := WebhookResponse{
			Received:  true,
			EventID:   result.EventID,
			EventType: result.EventType,
		}
		switch result.Status {
		case domain.ProcessingStatusDuplicate, domain.ProcessingStatusIgnored:
			resp.Status = string(result.Status)
		case domain.ProcessingStatusFailed:
			resp.Status = string(result.Status)
			if result.Err != nil {
				resp.Error = result.Err.Error()
			}
		}

		writeJSON(w, r, http.StatusOK, resp)
	}
}

func writeVerificationError(w http.ResponseWriter, r *http.Request, err error) {
	log.ForContext(r.Context()).WithError(err).Warn("webhook: verification failed")

	for _, vc := range verificationCodes {
		if errors.Is(err, vc.err) {
			var details any
			var domainErr *domain.Error
			if errors.As(err, &domainErr) && domainErr.Details != "" {
				details = domainErr.Details
			}
			apiErrors.WriteError(w, vc.code, vc.err.Error(), details)
			return
		}
	}

	apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "invalid webhook request", nil)
}

// WebhookMethodNotAllowed answers every method other than POST on the webhook path.
func WebhookMethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, r, http.StatusMethodNotAllowed, apiErrors.APIError{
			Code:    apiErrors.ErrMethodNotAllowed,
			Message: "method not allowed",
		})
	}
}
