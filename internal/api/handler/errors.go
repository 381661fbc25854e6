package handler

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/vfg2006/saas-metrics-api/internal/domain"
	"github.com/vfg2006/saas-metrics-api/pkg/apiErrors"
	"github.com/vfg2006/saas-metrics-api/pkg/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var kindCodes = map[domain.ErrorKind]string{
	domain.KindAuthentication:   apiErrors.ErrProviderAuth,
	domain.KindAuthorization:    apiErrors.ErrProviderAuth,
	domain.KindValidation:       apiErrors.ErrInvalidRequest,
	domain.KindNotFound:         apiErrors.ErrNotFound,
	domain.KindExternalService:  apiErrors.ErrExternalService,
	domain.KindSignatureInvalid: apiErrors.ErrInvalidSignature,
	domain.KindNotConnected:     apiErrors.ErrNotConnected,
	domain.KindTimeout:          apiErrors.ErrProviderTimeout,
	domain.KindInternal:         apiErrors.ErrInternalServer,
}

// writeDomainError maps the error kind onto the API error envelope.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)

	code, ok := kindCodes[kind]
	if !ok {
		code = apiErrors.ErrInternalServer
	}

	logger := log.ForContext(r.Context()).WithError(err).WithField("path", r.URL.Path)
	if kind == domain.KindInternal {
		logger.Error("handler: request failed")
		apiErrors.WriteError(w, code, "internal server error", nil)
		return
	}
	logger.Warn("handler: request rejected")

	var details any
	var domainErr *domain.Error
	if errors.As(err, &domainErr) && domainErr.Details != "" {
		details = domainErr.Details
	}

	message := err.Error()
	if domainErr != nil && domainErr.Err != nil {
		message = domainErr.Err.Error()
	}

	apiErrors.WriteError(w, code, message, details)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.ForContext(r.Context()).WithError(err).Error("handler: could not encode response")
	}
}
