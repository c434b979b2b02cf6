package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/store"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// ListConfigurationsResponse lists saved configurations, newest first.
type ListConfigurationsResponse struct {
	Configurations []store.Configuration `json:"configurations"`
	Total          int                   `json:"total"`
}

// ListConfigurationsEndpoint handles GET /api/configurations.
type ListConfigurationsEndpoint struct{}

func (e *ListConfigurationsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/configurations", e.handler
}

func (e *ListConfigurationsEndpoint) RequiresInit() bool { return true }

func (e *ListConfigurationsEndpoint) Group() string { return "configurations" }

// handler godoc
//
//	@Summary	List saved configurations
//	@Tags		configurations
//	@Produce	json
//	@Success	200	{object}	ListConfigurationsResponse
//	@Router		/api/configurations [get]
func (e *ListConfigurationsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	items, err := st.Configurations.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := ListConfigurationsResponse{Configurations: make([]store.Configuration, 0, len(items))}
	for i := len(items) - 1; i >= 0; i-- {
		resp.Configurations = append(resp.Configurations, items[i])
	}
	resp.Total = len(resp.Configurations)
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListConfigurationsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListConfigurationsResponse
			if err := client.Get(cmd.Context(), "/api/configurations", &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}
			for _, c := range resp.Configurations {
				fmt.Printf("%s  %-10s %s\n", c.ID, c.OutputType, c.Name)
			}
			return nil
		},
	}
}

// validateConfiguration checks a configuration before it is saved.
func validateConfiguration(c *store.Configuration) error {
	verr := &prompts.ValidationError{}
	if strings.TrimSpace(c.Name) == "" {
		verr.Problems = append(verr.Problems, "name is required")
	}
	kind, err := prompts.LookupKind(c.OutputType)
	if err != nil {
		verr.Problems = append(verr.Problems, fmt.Sprintf("outputType: %v: %q", err, c.OutputType))
	}
	merge := func(err error) {
		var v *prompts.ValidationError
		if errors.As(err, &v) {
			verr.Problems = append(verr.Problems, v.Problems...)
		}
	}
	if len(c.Drivers) > 0 {
		merge(prompts.ValidateDrivers(c.Drivers))
	}
	if len(c.Directives) > 0 {
		merge(prompts.ValidateDirectives(c.Directives))
	}
	if len(verr.Problems) > 0 {
		return verr
	}
	if c.SectionLabel == "" {
		c.SectionLabel = kind.SectionLabel
	}
	if c.Context == nil {
		c.Context = map[string]string{}
	}
	return nil
}

// CreateConfigurationEndpoint handles POST /api/configurations.
type CreateConfigurationEndpoint struct{}

func (e *CreateConfigurationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/configurations", e.handler
}

func (e *CreateConfigurationEndpoint) RequiresInit() bool { return true }

func (e *CreateConfigurationEndpoint) Group() string { return "configurations" }

// handler godoc
//
//	@Summary		Save a configuration
//	@Description	The id and creation time are assigned by the server. The oldest entry is evicted past the cap.
//	@Tags			configurations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		store.Configuration	true	"Configuration"
//	@Success		201		{object}	store.Configuration
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/configurations [post]
func (e *CreateConfigurationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var c store.Configuration
	if err := decodeBody(r, &c); err != nil {
		writeErr(w, err)
		return
	}
	if err := validateConfiguration(&c); err != nil {
		writeErr(w, err)
		return
	}
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	editor := svcctx.EditorFrom(r.Context())
	c.ID = editor.NewID()
	c.CreatedAt = editor.Now()
	if err := st.Configurations.Put(r.Context(), c); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (e *CreateConfigurationEndpoint) Command(getServerURL func() string) *cobra.Command {
	var contextPairs, driverPairs []string
	var c store.Configuration
	cmd := &cobra.Command{
		Use:   "create <name> <type>",
		Short: "Save a generation configuration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs(contextPairs)
			if err != nil {
				return err
			}
			c.Name, c.OutputType, c.Context = args[0], args[1], pairs
			for _, d := range driverPairs {
				name, desc, _ := strings.Cut(d, ":")
				c.Drivers = append(c.Drivers, prompts.Driver{
					Name:        strings.TrimSpace(name),
					Description: strings.TrimSpace(desc),
				})
			}
			client := api.NewClient(getServerURL())
			var resp store.Configuration
			if err := client.Post(cmd.Context(), "/api/configurations", c, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringArrayVarP(&contextPairs, "context", "c", nil, "Context entry as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&driverPairs, "driver", nil, `Section driver as "Name: description" (repeatable)`)
	cmd.Flags().StringVar(&c.SectionLabel, "label", "", "Section label")
	return cmd
}

// DeleteConfigurationEndpoint handles DELETE /api/configurations/{id}.
type DeleteConfigurationEndpoint struct{}

func (e *DeleteConfigurationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/configurations/{id}", e.handler
}

func (e *DeleteConfigurationEndpoint) RequiresInit() bool { return true }

func (e *DeleteConfigurationEndpoint) Group() string { return "configurations" }

// handler godoc
//
//	@Summary	Delete a configuration
//	@Tags		configurations
//	@Param		id	path	string	true	"Configuration ID"
//	@Success	204	"No Content"
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/configurations/{id} [delete]
func (e *DeleteConfigurationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	if err := st.Configurations.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteConfigurationEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/configurations/"+args[0], nil); err != nil {
				return err
			}
			fmt.Println("Configuration deleted successfully")
			return nil
		},
	}
}
