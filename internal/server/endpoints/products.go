package endpoints

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/content"
)

// ProductSummary is one row of the product list.
type ProductSummary struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	OutputType string        `json:"outputType"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	Stats      content.Stats `json:"stats"`
}

// ListProductsResponse lists stored products, newest first.
type ListProductsResponse struct {
	Products []ProductSummary `json:"products"`
	Total    int              `json:"total"`
}

// ListProductsEndpoint handles GET /api/products.
type ListProductsEndpoint struct{}

func (e *ListProductsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/products", e.handler
}

func (e *ListProductsEndpoint) RequiresInit() bool { return true }

func (e *ListProductsEndpoint) Group() string { return "products" }

// handler godoc
//
//	@Summary	List products
//	@Tags		products
//	@Produce	json
//	@Param		type	query		string	false	"Filter by output type"
//	@Success	200		{object}	ListProductsResponse
//	@Router		/api/products [get]
func (e *ListProductsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	products, err := st.Products.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}

	outputType := r.URL.Query().Get("type")
	resp := ListProductsResponse{Products: []ProductSummary{}}
	for i := len(products) - 1; i >= 0; i-- {
		p := products[i]
		if outputType != "" && p.OutputType != outputType {
			continue
		}
		resp.Products = append(resp.Products, ProductSummary{
			ID:         p.ID,
			Title:      p.Title,
			OutputType: p.OutputType,
			CreatedAt:  p.CreatedAt,
			UpdatedAt:  p.UpdatedAt,
			Stats:      p.Stats(),
		})
	}
	resp.Total = len(resp.Products)
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListProductsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored products",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/products"
			if outputType != "" {
				path += "?type=" + outputType
			}
			client := api.NewClient(getServerURL())
			var resp ListProductsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&outputType, "type", "", "Filter by output type")
	return cmd
}

// GetProductEndpoint handles GET /api/products/{id}.
type GetProductEndpoint struct{}

func (e *GetProductEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/products/{id}", e.handler
}

func (e *GetProductEndpoint) RequiresInit() bool { return true }

func (e *GetProductEndpoint) Group() string { return "products" }

// handler godoc
//
//	@Summary		Get a product
//	@Description	With visible=true, hidden sections and elements are left out
//	@Tags			products
//	@Produce		json
//	@Param			id		path		string	true	"Product ID"
//	@Param			visible	query		bool	false	"Only visible content"
//	@Success		200		{object}	content.Product
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/products/{id} [get]
func (e *GetProductEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	p, err := st.Products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if v, _ := strconv.ParseBool(r.URL.Query().Get("visible")); v {
		p.Sections = p.VisibleSections()
	}
	writeJSON(w, http.StatusOK, p)
}

func (e *GetProductEndpoint) Command(getServerURL func() string) *cobra.Command {
	var visible bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/products/" + args[0]
			if visible {
				path += "?visible=true"
			}
			client := api.NewClient(getServerURL())
			var p content.Product
			if err := client.Get(cmd.Context(), path, &p); err != nil {
				return err
			}
			return api.Output(p)
		},
	}
	cmd.Flags().BoolVar(&visible, "visible", false, "Leave out hidden sections and elements")
	return cmd
}

// DeleteProductEndpoint handles DELETE /api/products/{id}.
type DeleteProductEndpoint struct{}

func (e *DeleteProductEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/products/{id}", e.handler
}

func (e *DeleteProductEndpoint) RequiresInit() bool { return true }

func (e *DeleteProductEndpoint) Group() string { return "products" }

// handler godoc
//
//	@Summary	Delete a product
//	@Tags		products
//	@Param		id	path	string	true	"Product ID"
//	@Success	204	"No Content"
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/products/{id} [delete]
func (e *DeleteProductEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	if err := st.Products.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteProductEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/products/"+args[0], nil); err != nil {
				return err
			}
			fmt.Println("Product deleted successfully")
			return nil
		},
	}
}

