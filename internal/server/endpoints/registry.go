package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/batch"
	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/content"
	"github.com/jackzampolin/folio/internal/enrich"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/section"
	"github.com/jackzampolin/folio/internal/store"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// StartedAt is reported by /status.
	StartedAt time.Time
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{StartedAt: cfg.StartedAt},

		// Catalog
		&ListCatalogEndpoint{},
		&GetCatalogEndpoint{},

		// Generation
		&GenerateEndpoint{},
		&RegenerateSectionEndpoint{},

		// Products
		&ListProductsEndpoint{},
		&GetProductEndpoint{},
		&DeleteProductEndpoint{},
		&ToggleSectionEndpoint{},
		&ToggleElementEndpoint{},
		&UpdateFieldEndpoint{},
		&UpdateBrandingEndpoint{},

		// Annotations
		&AddAnnotationEndpoint{},
		&UpdateAnnotationEndpoint{},
		&DeleteAnnotationEndpoint{},

		// Enrichment
		&DissectEndpoint{},
		&DeeperEndpoint{},

		// Saved configurations
		&ListConfigurationsEndpoint{},
		&CreateConfigurationEndpoint{},
		&DeleteConfigurationEndpoint{},

		// Debug log and metrics
		&ListCallsEndpoint{},
		&ClearCallsEndpoint{},
		&MetricsSummaryEndpoint{},

		// Settings
		&ListSettingsEndpoint{},
		&UpdateSettingEndpoint{},
		&ResetSettingEndpoint{},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// errProviderUnavailable is returned when the configured LLM provider is
// not registered (disabled or missing an API key).
var errProviderUnavailable = errors.New("llm provider not available")

var errStoreUnavailable = errors.New("store not initialized")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verr *prompts.ValidationError
	var gerr *section.GenerationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, prompts.ErrUnknownKind),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, content.ErrIndexOutOfRange),
		errors.Is(err, content.ErrAnnotationNotFound):
		return http.StatusNotFound
	case errors.Is(err, content.ErrInvalidKey),
		errors.Is(err, content.ErrInvalidAnnotationType),
		errors.Is(err, content.ErrInvalidQuestionOrder),
		errors.Is(err, enrich.ErrEmptyItem),
		errors.Is(err, config.ErrInvalidKey),
		errors.Is(err, config.ErrInvalidValue),
		errors.Is(err, config.ErrNoDefault):
		return http.StatusBadRequest
	case errors.Is(err, batch.ErrNoContent):
		return http.StatusBadGateway
	case errors.As(err, &gerr):
		if gerr.Kind == section.KindTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.Is(err, errProviderUnavailable),
		errors.Is(err, errStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeErr writes err with the status statusFor picks. The exhausted batch
// keeps its bare message.
func writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, batch.ErrNoContent) {
		writeError(w, http.StatusBadGateway, batch.ErrNoContent.Error())
		return
	}
	writeError(w, statusFor(err), err.Error())
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return &prompts.ValidationError{Problems: []string{"request body is required"}}
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &prompts.ValidationError{Problems: []string{fmt.Sprintf("invalid JSON body: %v", err)}}
	}
	return nil
}

// pathIndex reads a non-negative integer path value.
func pathIndex(r *http.Request, name string) (int, error) {
	v := r.PathValue(name)
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &prompts.ValidationError{Problems: []string{fmt.Sprintf("%s must be a non-negative integer, got %q", name, v)}}
	}
	return n, nil
}

// storeOrFail returns the store or writes 503.
func storeOrFail(w http.ResponseWriter, r *http.Request) *store.Store {
	st := storeFrom(r)
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, errStoreUnavailable.Error())
	}
	return st
}
