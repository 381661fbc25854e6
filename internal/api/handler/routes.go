package handler

import (
	"net/http"

	"github.com/vfg2006/saas-metrics-api/internal/api/handler/router"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/authenticating"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/calculating"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/ingesting"
	"github.com/vfg2006/saas-metrics-api/internal/usecases/reporting"
	"github.com/vfg2006/saas-metrics-api/pkg/middleware"
)

const webhookPath = "/v1/webhooks/stripe"

func Healthcheck() []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(),
		},
	}
}

// Exposition serves the Prometheus registry.
func Exposition(handler http.Handler) []router.Route {
	return []router.Route{
		{
			Path:    "/metrics",
			Method:  http.MethodGet,
			Handler: handler,
		},
	}
}

func Webhooks(service ingesting.Ingester) []router.Route {
	return []router.Route{
		{
			Path:    webhookPath,
			Method:  http.MethodPost,
			Handler: StripeWebhook(service),
		},
		{
			Path:    webhookPath,
			Handler: WebhookMethodNotAllowed(),
		},
	}
}

func Metrics(reporter reporting.Reporter, calculator calculating.Calculator) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/metrics",
			Method:      http.MethodGet,
			Handler:     GetMetrics(reporter),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles(), middleware.RequireWorkspace()},
		},
		{
			Path:        "/v1/metrics/recalculate",
			Method:      http.MethodPost,
			Handler:     RecalculateMetrics(calculator),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles(), middleware.RequireWorkspace()},
		},
	}
}

func Authentication(service authenticating.Authenticator) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/login",
			Method:  http.MethodPost,
			Handler: Login(service),
		},
		{
			Path:    "/v1/register",
			Method:  http.MethodPost,
			Handler: Register(service),
		},
		{
			Path:        "/v1/me",
			Method:      http.MethodGet,
			Handler:     GetMe(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
	}
}

func CronJobs(services CronJobServices) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/cron/:type/run",
			Method:      http.MethodPost,
			Handler:     RunCronJob(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
		{
			Path:        "/v1/cron",
			Method:      http.MethodGet,
			Handler:     GetCronStatus(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
	}
}
