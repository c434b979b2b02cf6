package endpoints

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/svcctx"
	"github.com/jackzampolin/folio/version"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Liveness check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Returns 503 until the store answers a ping
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Store: "ok"}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		resp.Status = "degraded"
		resp.Store = "not_initialized"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if err := st.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Store = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes the store)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			if resp.Store != "" {
				fmt.Printf("Store:  %s\n", resp.Store)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server     string            `json:"server"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime,omitempty"`
	ConfigFile string            `json:"configFile,omitempty"`
	Providers  ProvidersStatus   `json:"providers"`
	Store      StoreStatus       `json:"store"`
	Settings   config.Runtime    `json:"settings"`
	Timeouts   map[string]string `json:"timeouts"`
}

// ProvidersStatus shows registered LLM providers and the active one.
type ProvidersStatus struct {
	LLM    []string `json:"llm"`
	Active string   `json:"active"`
}

// StoreStatus shows collection sizes and health.
type StoreStatus struct {
	Health         string `json:"health"`
	Products       int    `json:"products"`
	Configurations int    `json:"configurations"`
	DebugLogs      int    `json:"debugLogs"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// StartedAt is set by the server.
	StartedAt time.Time
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Detailed server status
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Router		/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := svcctx.ConfigFrom(ctx)

	resp := StatusResponse{
		Server:   "running",
		Version:  version.GitRelease,
		Timeouts: map[string]string{"batch": cfg.Generation.BatchTimeout.String()},
	}
	if !e.StartedAt.IsZero() {
		resp.Uptime = time.Since(e.StartedAt).Round(time.Second).String()
	}
	if mgr := svcctx.ConfigManagerFrom(ctx); mgr != nil {
		resp.ConfigFile = mgr.ConfigFile()
	}

	rt, err := config.Effective(ctx, svcctx.SettingsFrom(ctx), cfg)
	if err == nil {
		resp.Settings = rt
	}
	resp.Providers.Active = rt.LLMProvider
	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers.LLM = registry.ListLLM()
	}

	st := svcctx.StoreFrom(ctx)
	switch {
	case st == nil:
		resp.Store.Health = "not_initialized"
	case st.Ping(ctx) != nil:
		resp.Store.Health = "unhealthy"
	default:
		resp.Store.Health = "healthy"
		resp.Store.Products, _ = st.Products.Len(ctx)
		resp.Store.Configurations, _ = st.Configurations.Len(ctx)
		resp.Store.DebugLogs, _ = st.DebugLogs.Len(ctx)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}
			fmt.Printf("Server:  %s (%s)\n", resp.Server, resp.Version)
			if resp.Uptime != "" {
				fmt.Printf("Uptime:  %s\n", resp.Uptime)
			}
			fmt.Printf("Store:\n")
			fmt.Printf("  Health:         %s\n", resp.Store.Health)
			fmt.Printf("  Products:       %d\n", resp.Store.Products)
			fmt.Printf("  Configurations: %d\n", resp.Store.Configurations)
			fmt.Printf("  Debug logs:     %d\n", resp.Store.DebugLogs)
			fmt.Printf("Providers:\n")
			fmt.Printf("  LLM:    %v\n", resp.Providers.LLM)
			fmt.Printf("  Active: %s\n", resp.Providers.Active)
			return nil
		},
	}
}
