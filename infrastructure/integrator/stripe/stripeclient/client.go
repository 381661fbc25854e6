package stripeclient

import (
	"context"
	"net/http"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/vfg2006/saas-metrics-api/internal/config"
	"golang.org/x/time/rate"

	stripedomain "github.com/vfg2006/saas-metrics-api/infrastructure/integrator/stripe/domain"
)

type Client interface {
	ListSubscriptions(ctx context.Context, params stripedomain.ListSubscriptionsParams) ([]*stripeapi.Subscription, error)
	ListCustomers(ctx context.Context, params stripedomain.ListCustomersParams) ([]*stripeapi.Customer, error)
}

// StripeClient talks to the Stripe API with the access token of each workspace connection.
type StripeClient struct {
	backends *stripeapi.Backends
}

func NewClient(cfg *config.Config) Client {
	limiter := rate.NewLimiter(rate.Limit(cfg.Stripe.RequestsPerSecond), cfg.Stripe.RequestBurst)

	httpClient := &http.Client{
		Timeout:   cfg.Stripe.RequestTimeout,
		Transport: &throttledTransport{base: http.DefaultTransport, limiter: limiter},
	}

	backendConfig := &stripeapi.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelError},
	}
	if cfg.Stripe.APIURL != "" {
		backendConfig.URL = stripeapi.String(cfg.Stripe.APIURL)
	}

	return &StripeClient{
		backends: &stripeapi.Backends{
			API:     stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendConfig),
			Connect: stripeapi.GetBackendWithConfig(stripeapi.ConnectBackend, backendConfig),
			Uploads: stripeapi.GetBackendWithConfig(stripeapi.UploadsBackend, backendConfig),
		},
	}
}

func (c *StripeClient) api(accessToken string) *client.API {
	return client.New(accessToken, c.backends)
}

// throttledTransport waits on a shared limiter before every outbound request,
// including the page fetches issued by list iterators.
type throttledTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
