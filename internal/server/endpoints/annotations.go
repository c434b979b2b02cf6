package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/content"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// AddAnnotationEndpoint handles POST /api/products/{id}/annotations/{key}.
type AddAnnotationEndpoint struct{}

func (e *AddAnnotationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/products/{id}/annotations/{key}", e.handler
}

func (e *AddAnnotationEndpoint) RequiresInit() bool { return true }

func (e *AddAnnotationEndpoint) Group() string { return "annotations" }

// handler godoc
//
//	@Summary		Annotate a section or element
//	@Description	key is "section-{s}" for a section or "{s}-{e}" for an element
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Product ID"
//	@Param			key		path		string					true	"Section or element key"
//	@Param			request	body		content.AnnotationInput	true	"Annotation"
//	@Success		201		{object}	content.Annotation
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/products/{id}/annotations/{key} [post]
func (e *AddAnnotationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var in content.AnnotationInput
	if err := decodeBody(r, &in); err != nil {
		writeErr(w, err)
		return
	}
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	editor := svcctx.EditorFrom(r.Context())
	var added content.Annotation
	_, err := st.Products.Update(r.Context(), r.PathValue("id"), func(p *content.Product) error {
		a, err := editor.AddAnnotation(p, r.PathValue("key"), in)
		added = a
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (e *AddAnnotationEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in content.AnnotationInput
	cmd := &cobra.Command{
		Use:   "add <id> <key>",
		Short: "Add an annotation",
		Long: `Add an annotation to a section ("section-0") or an element ("0-2").

Types: expert-note, opinion, guidance, tip, warning, example`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var a content.Annotation
			if err := client.Post(cmd.Context(), fmt.Sprintf("/api/products/%s/annotations/%s", args[0], args[1]), in, &a); err != nil {
				return err
			}
			return api.Output(a)
		},
	}
	annotationFlags(cmd, &in)
	return cmd
}

func annotationFlags(cmd *cobra.Command, in *content.AnnotationInput) {
	cmd.Flags().StringVar(&in.Type, "type", string(content.AnnotationExpertNote), "Annotation type")
	cmd.Flags().StringVar(&in.Title, "title", "", "Title")
	cmd.Flags().StringVar(&in.Content, "content", "", "Body text")
	cmd.Flags().StringVar(&in.Author, "author", "", "Author")
}

// UpdateAnnotationEndpoint handles PUT /api/products/{id}/annotations/{key}/{annotationId}.
type UpdateAnnotationEndpoint struct{}

func (e *UpdateAnnotationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/products/{id}/annotations/{key}/{annotationId}", e.handler
}

func (e *UpdateAnnotationEndpoint) RequiresInit() bool { return true }

func (e *UpdateAnnotationEndpoint) Group() string { return "annotations" }

// handler godoc
//
//	@Summary		Edit an annotation
//	@Description	An empty type keeps the current one
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Param			id				path		string					true	"Product ID"
//	@Param			key				path		string					true	"Section or element key"
//	@Param			annotationId	path		string					true	"Annotation ID"
//	@Param			request			body		content.AnnotationInput	true	"Annotation"
//	@Success		200				{object}	content.Annotation
//	@Failure		404				{object}	ErrorResponse
//	@Router			/api/products/{id}/annotations/{key}/{annotationId} [put]
func (e *UpdateAnnotationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var in content.AnnotationInput
	if err := decodeBody(r, &in); err != nil {
		writeErr(w, err)
		return
	}
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	editor := svcctx.EditorFrom(r.Context())
	var updated content.Annotation
	_, err := st.Products.Update(r.Context(), r.PathValue("id"), func(p *content.Product) error {
		a, err := editor.UpdateAnnotation(p, r.PathValue("key"), r.PathValue("annotationId"), in)
		updated = a
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (e *UpdateAnnotationEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in content.AnnotationInput
	cmd := &cobra.Command{
		Use:   "update <id> <key> <annotation-id>",
		Short: "Edit an annotation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("type") {
				in.Type = ""
			}
			client := api.NewClient(getServerURL())
			var a content.Annotation
			path := fmt.Sprintf("/api/products/%s/annotations/%s/%s", args[0], args[1], args[2])
			if err := client.Put(cmd.Context(), path, in, &a); err != nil {
				return err
			}
			return api.Output(a)
		},
	}
	annotationFlags(cmd, &in)
	return cmd
}

// DeleteAnnotationResponse reports whether anything was removed.
type DeleteAnnotationResponse struct {
	Deleted bool `json:"deleted"`
}

// DeleteAnnotationEndpoint handles DELETE /api/products/{id}/annotations/{key}/{annotationId}.
type DeleteAnnotationEndpoint struct{}

func (e *DeleteAnnotationEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/products/{id}/annotations/{key}/{annotationId}", e.handler
}

func (e *DeleteAnnotationEndpoint) RequiresInit() bool { return true }

func (e *DeleteAnnotationEndpoint) Group() string { return "annotations" }

// handler godoc
//
//	@Summary		Delete an annotation
//	@Description	Deleting a missing annotation succeeds with deleted=false
//	@Tags			annotations
//	@Produce		json
//	@Param			id				path		string	true	"Product ID"
//	@Param			key				path		string	true	"Section or element key"
//	@Param			annotationId	path		string	true	"Annotation ID"
//	@Success		200				{object}	DeleteAnnotationResponse
//	@Failure		404				{object}	ErrorResponse	"product not found"
//	@Router			/api/products/{id}/annotations/{key}/{annotationId} [delete]
func (e *DeleteAnnotationEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	editor := svcctx.EditorFrom(r.Context())
	var deleted bool
	_, err := st.Products.Update(r.Context(), r.PathValue("id"), func(p *content.Product) error {
		deleted = editor.DeleteAnnotation(p, r.PathValue("key"), r.PathValue("annotationId"))
		return nil
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteAnnotationResponse{Deleted: deleted})
}

func (e *DeleteAnnotationEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id> <key> <annotation-id>",
		Short: "Delete an annotation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp DeleteAnnotationResponse
			path := fmt.Sprintf("/api/products/%s/annotations/%s/%s", args[0], args[1], args[2])
			if err := client.Delete(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if resp.Deleted {
				fmt.Println("Annotation deleted")
			} else {
				fmt.Println("Annotation not found; nothing deleted")
			}
			return nil
		},
	}
}
