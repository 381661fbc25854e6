package ingesting

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
)

const SignatureHeader = "Stripe-Signature"

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidMetadata  = errors.New("invalid webhook request metadata")
	ErrPayloadTooLarge  = errors.New("webhook payload too large")
)

// Verifier authenticates webhook deliveries against the shared signing secret.
type Verifier struct {
	secret       string
	tolerance    time.Duration
	maxBodyBytes int64
}

func NewVerifier(cfg *config.Config) *Verifier {
	return &Verifier{
		secret:       cfg.Stripe.WebhookSecret,
		tolerance:    cfg.Stripe.WebhookTolerance,
		maxBodyBytes: cfg.Webhook.MaxBodyBytes,
	}
}

// Verify checks the request preconditions and the signature over the raw
// body, then parses the event. It has no side effects.
func (v *Verifier) Verify(r *http.Request) (*stripeapi.Event, error) {
	const op = "ingesting.Verify"

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, &domain.Error{Kind: domain.KindValidation, Op: op, Err: ErrInvalidMetadata, Details: "content type must be application/json"}
	}

	if r.ContentLength > v.maxBodyBytes {
		return nil, domain.NewError(domain.KindValidation, op, ErrPayloadTooLarge)
	}

	header := strings.TrimSpace(r.Header.Get(SignatureHeader))
	if header == "" {
		return nil, domain.NewError(domain.KindValidation, op, ErrMissingSignature)
	}

	// Read one byte past the cap so an undeclared oversize body is detected.
	payload, err := io.ReadAll(io.LimitReader(r.Body, v.maxBodyBytes+1))
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindValidation, Op: op, Err: ErrInvalidMetadata, Details: err.Error()}
	}
	if int64(len(payload)) > v.maxBodyBytes {
		return nil, domain.NewError(domain.KindValidation, op, ErrPayloadTooLarge)
	}

	event, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureFailure(err) {
			return nil, &domain.Error{Kind: domain.KindSignatureInvalid, Op: op, Err: ErrInvalidSignature, Details: err.Error()}
		}
		return nil, &domain.Error{Kind: domain.KindValidation, Op: op, Err: ErrInvalidMetadata, Details: err.Error()}
	}

	if event.ID == "" || event.Type == "" {
		return nil, &domain.Error{Kind: domain.KindValidation, Op: op, Err: ErrInvalidMetadata, Details: "event id and type are required"}
	}

	return &event, nil
}

func isSignatureFailure(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
