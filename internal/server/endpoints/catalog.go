package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/prompts"
)

// CatalogResponse lists every output type.
type CatalogResponse struct {
	Kinds []*prompts.Kind `json:"kinds"`
}

// ListCatalogEndpoint handles GET /api/catalog.
type ListCatalogEndpoint struct{}

func (e *ListCatalogEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/catalog", e.handler
}

func (e *ListCatalogEndpoint) RequiresInit() bool { return false }

func (e *ListCatalogEndpoint) Group() string { return "catalog" }

// handler godoc
//
//	@Summary		List output types
//	@Description	Built-in output types with their default drivers and fields
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	CatalogResponse
//	@Router			/api/catalog [get]
func (e *ListCatalogEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CatalogResponse{Kinds: prompts.Kinds()})
}

func (e *ListCatalogEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List output types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CatalogResponse
			if err := client.Get(cmd.Context(), "/api/catalog", &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}
			for _, k := range resp.Kinds {
				fmt.Printf("%-10s %-14s %d %ss\n", k.Name, k.Title, len(k.DefaultDrivers), k.SectionLabel)
			}
			return nil
		},
	}
}

// GetCatalogEndpoint handles GET /api/catalog/{type}.
type GetCatalogEndpoint struct{}

func (e *GetCatalogEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/catalog/{type}", e.handler
}

func (e *GetCatalogEndpoint) RequiresInit() bool { return false }

func (e *GetCatalogEndpoint) Group() string { return "catalog" }

// handler godoc
//
//	@Summary	Get one output type
//	@Tags		catalog
//	@Produce	json
//	@Param		type	path		string	true	"Output type"
//	@Success	200		{object}	prompts.Kind
//	@Failure	404		{object}	ErrorResponse
//	@Router		/api/catalog/{type} [get]
func (e *GetCatalogEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	kind, err := prompts.LookupKind(r.PathValue("type"))
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %s", err, r.PathValue("type")))
		return
	}
	writeJSON(w, http.StatusOK, kind)
}

func (e *GetCatalogEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type>",
		Short: "Show the defaults of one output type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var kind prompts.Kind
			if err := client.Get(cmd.Context(), "/api/catalog/"+args[0], &kind); err != nil {
				return err
			}
			return api.Output(kind)
		},
	}
}
