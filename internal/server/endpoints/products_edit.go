package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/content"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// ToggleResponse reports the visibility after a toggle.
type ToggleResponse struct {
	Hidden bool `json:"hidden"`
}

// ToggleSectionEndpoint handles POST /api/products/{id}/sections/{s}/toggle.
type ToggleSectionEndpoint struct{}

func (e *ToggleSectionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/products/{id}/sections/{s}/toggle", e.handler
}

func (e *ToggleSectionEndpoint) RequiresInit() bool { return true }

func (e *ToggleSectionEndpoint) Group() string { return "products" }

// handler godoc
//
//	@Summary	Toggle section visibility
//	@Tags		products
//	@Produce	json
//	@Param		id	path		string	true	"Product ID"
//	@Param		s	path		int		true	"Section index"
//	@Success	200	{object}	ToggleResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/products/{id}/sections/{s}/toggle [post]
func (e *ToggleSectionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, err := pathIndex(r, "s")
	if err != nil {
		writeErr(w, err)
		return
	}
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	editor := svcctx.EditorFrom(r.Context())
	var hidden bool
	_, err = st.Products.Update(r.Context(), r.PathValue("id"), func(p *content.Product) error {
		hidden, err = editor.ToggleSectionVisibility(p, s)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{Hidden: hidden})
}

func (e *ToggleSectionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-section <id> <section>",
		Short: "Hide or show a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ToggleResponse
			path := fmt.Sprintf("/api/products/%s/sections/%s/toggle", args[0], args[1])
			if err := client.Post(cmd.Context(), path, nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Section %s hidden: %t\n", args[1], resp.Hidden)
			return nil
		},
	}
}

// ToggleElementEndpoint handles POST /api/products/{id}/sections/{s}/elements/{e}/toggle.
type ToggleElementEndpoint struct{}

func (e *ToggleElementEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/products/{id}/sections/{s}/elements/{e}/toggle", e.handler
}

func (e *ToggleElementEndpoint) RequiresInit() bool { return true }

func (e *ToggleElementEndpoint) Group() string { return "products" }

// handler godoc
//
//	@Summary	Toggle element visibility
//	@Tags		products
//	@Produce	json
//	@Param		id	path		string	true	"Product ID"
//	@Param		s	path		int		true	"Section index"
//	@Param		e	path		int		true	"Element index"
//	@Success	200	{object}	ToggleResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/products/{id}/sections/{s}/elements/{e}/toggle [post]
func (e *ToggleElementEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, err := pathIndex(r, "s")
	if err != nil {
		writeErr(w, err)
		return
	}
	el, err := pathIndex(r, "e")
	if err != nil {
		writeErr(w, err)
		return
	}
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	editor := svcctx.EditorFrom(r.Context())
	var hidden bool
	_, err = st.Products.Update(r.Context(), r.PathValue("id"), func(p *content.Product) error {
		hidden, err = editor.ToggleElementVisibility(p, s, el)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{Hidden: hidden})
}

func (e *ToggleElementEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id> <section> <element>",
		Short: "Hide or show an element",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ToggleResponse
			path := fmt.Sprintf("/api/products/%s/sections/%s/elements/%s/toggle", args[0], args[1], args[2])
			if err := client.Post(cmd.Context(), path, nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Element %s-%s hidden: %t\n", args[1], args[2], resp.Hidden)
			return nil
		},
	}
}

// UpdateFieldRequest is the body of a field edit.
type UpdateFieldRequest struct {
	Value string `json:"value"`
}

// UpdateFieldResponse echoes the element after the edit.
type UpdateFieldResponse struct {
	Fields map[string]string `json:"fields"`
}

// UpdateFieldEndpoint handles PUT /api/products/{id}/sections/{s}/elements/{e}/fields/{key}.
type UpdateFieldEndpoint struct{}

func (e *UpdateFieldEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/products/{id}/sections/{s}/elements/{e}/fields/{key}", e.handler
}

func (e *UpdateFieldEndpoint) RequiresInit() bool { return true }

func (e *UpdateFieldEndpoint) Group() string { return "products" }

// handler godoc
//
//	@Summary		Edit one element field
//	@Description	The value is stored as given; empty strings are allowed
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Product ID"
//	@Param			s		path		int					true	"Section index"
//	@Param			e		path		int					true	"Element index"
//	@Param			key		path		string				true	"Field key"
//	@Param			request	body		UpdateFieldRequest	true	"New value"
//	@Success		200		{object}	UpdateFieldResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/products/{id}/sections/{s}/elements/{e}/fields/{key} [put]
func (e *UpdateFieldEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, err := pathIndex(r, "s")
	if err != nil {
		writeErr(w, err)
		return
	}
	el, err := pathIndex(r, "e")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req UpdateFieldRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	editor := svcctx.EditorFrom(r.Context())
	key := r.PathValue("key")
	p, err := st.Products.Update(r.Context(), r.PathValue("id"), func(p *content.Product) error {
		return editor.UpdateElementField(p, s, el, key, req.Value)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateFieldResponse{Fields: p.Sections[s].Elements[el].Fields})
}

func (e *UpdateFieldEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-field <id> <section> <element> <key> <value>",
		Short: "Edit one field of an element",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp UpdateFieldResponse
			path := fmt.Sprintf("/api/products/%s/sections/%s/elements/%s/fields/%s", args[0], args[1], args[2], args[3])
			if err := client.Put(cmd.Context(), path, UpdateFieldRequest{Value: args[4]}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// UpdateBrandingEndpoint handles PUT /api/products/{id}/branding.
type UpdateBrandingEndpoint struct{}

func (e *UpdateBrandingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/products/{id}/branding", e.handler
}

func (e *UpdateBrandingEndpoint) RequiresInit() bool { return true }

func (e *UpdateBrandingEndpoint) Group() string { return "products" }

// handler godoc
//
//	@Summary	Replace product branding
//	@Tags		products
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Product ID"
//	@Param		request	body		content.Branding	true	"Branding"
//	@Success	200		{object}	content.Branding
//	@Failure	404		{object}	ErrorResponse
//	@Router		/api/products/{id}/branding [put]
func (e *UpdateBrandingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var b content.Branding
	if err := decodeBody(r, &b); err != nil {
		writeErr(w, err)
		return
	}
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	editor := svcctx.EditorFrom(r.Context())
	p, err := st.Products.Update(r.Context(), r.PathValue("id"), func(p *content.Product) error {
		editor.SetBranding(p, b)
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Branding)
}

func (e *UpdateBrandingEndpoint) Command(getServerURL func() string) *cobra.Command {
	var b content.Branding
	cmd := &cobra.Command{
		Use:   "brand <id>",
		Short: "Set product branding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp content.Branding
			if err := client.Put(cmd.Context(), "/api/products/"+args[0]+"/branding", b, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&b.CompanyName, "company", "", "Company name")
	cmd.Flags().StringVar(&b.LogoURL, "logo", "", "Logo URL")
	cmd.Flags().StringVar(&b.PrimaryColor, "primary", "", "Primary color")
	cmd.Flags().StringVar(&b.AccentColor, "accent", "", "Accent color")
	cmd.Flags().StringVar(&b.Footer, "footer", "", "Footer text")
	return cmd
}

// indexArg parses a CLI index argument.
func indexArg(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, v)
	}
	return n, nil
}
