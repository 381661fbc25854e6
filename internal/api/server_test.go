package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	stripeapi "github.com/stripe/stripe-go/v82"
	"go.uber.org/mock/gomock"

	"github.com/vfg2006/saas-metrics-api/internal/config"
	"github.com/vfg2006/saas-metrics-api/internal/domain"
	authmocks "github.com/vfg2006/saas-metrics-api/internal/usecases/authenticating/mocks"
	calcmocks "github.com/vfg2006/saas-metrics-api/internal/usecases/calculating/mocks"
	ingestmocks "github.com/vfg2006/saas-metrics-api/internal/usecases/ingesting/mocks"
	reportmocks "github.com/vfg2006/saas-metrics-api/internal/usecases/reporting/mocks"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
	"github.com/vfg2006/saas-metrics-api/pkg/metrics"
)

func TestNewHandler(t *testing.T) {
	log.SetupTestLogger()

	ctrl := gomock.NewController(t)
	auth := authmocks.NewMockAuthenticator(ctrl)
	ingester := ingestmocks.NewMockIngester(ctrl)

	h := NewHandler(&config.Config{Cors: config.Cors{AllowedOrigins: []string{"http://localhost:3000"}}}, Services{
		Authenticator: auth,
		Ingester:      ingester,
		Calculator:    calcmocks.NewMockCalculator(ctrl),
		Reporter:      reportmocks.NewMockReporter(ctrl),
		Collectors:    metrics.New(),
	})

	t.Run("webhook does not require a token", func(t *testing.T) {
		event := &stripeapi.Event{ID: "evt_1", Type: "invoice.paid"}
		ingester.EXPECT().Verify(gomock.Any()).Return(event, nil)
		ingester.EXPECT().Process(gomock.Any(), event).
			Return(&domain.ProcessingResult{EventID: "evt_1", EventType: "invoice.paid", Status: domain.ProcessingStatusProcessed}, nil)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics endpoint requires a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/metrics", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("prometheus exposition", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "go_goroutines")
	})

	t.Run("healthcheck", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	})
}
