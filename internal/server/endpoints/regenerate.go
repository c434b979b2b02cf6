package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/batch"
	"github.com/jackzampolin/folio/internal/content"
	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// RegenerateResponse is the body of a successful section regeneration.
type RegenerateResponse struct {
	Section content.ProductSection `json:"section"`
	Summary string                 `json:"summary"`
	Meta    *DebugMeta             `json:"_meta,omitempty"`
	Usage   *metrics.DebugUsage    `json:"_usage,omitempty"`
}

// RegenerateSectionEndpoint handles POST /api/products/{id}/sections/{s}/regenerate.
type RegenerateSectionEndpoint struct{}

func (e *RegenerateSectionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/products/{id}/sections/{s}/regenerate", e.handler
}

func (e *RegenerateSectionEndpoint) RequiresInit() bool { return true }

func (e *RegenerateSectionEndpoint) Group() string { return "products" }

// handler godoc
//
//	@Summary		Regenerate one section
//	@Description	Re-runs the section's driver with the product's context and directives. On an empty result the product is left unchanged.
//	@Tags			products
//	@Produce		json
//	@Param			id	path		string	true	"Product ID"
//	@Param			s	path		int		true	"Section index"
//	@Success		200	{object}	RegenerateResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse	"no content generated"
//	@Router			/api/products/{id}/sections/{s}/regenerate [post]
func (e *RegenerateSectionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, err := pathIndex(r, "s")
	if err != nil {
		writeErr(w, err)
		return
	}
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	id := r.PathValue("id")
	p, err := st.Products.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if s >= len(p.Sections) {
		writeErr(w, fmt.Errorf("section %d of %d: %w", s, len(p.Sections), content.ErrIndexOutOfRange))
		return
	}
	kind, err := prompts.LookupKind(p.OutputType)
	if err != nil {
		writeErr(w, err)
		return
	}

	run, err := newRunner(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := run.withBudget(r.Context())
	defer cancel()

	driver := driverFor(p, s)
	orch := batch.New(run.gen, batch.WithLogger(run.logger))
	resp := orch.Run(ctx, batch.Request{
		Kind:          kind,
		Context:       p.Context,
		Drivers:       []prompts.Driver{driver},
		SectionLabel:  kind.Label(p.SectionLabel),
		Directives:    p.Directives,
		DefaultFields: kind.DefaultFields,
	})
	if err := resp.Err(); err != nil {
		writeErr(w, err)
		return
	}

	sec := content.FromSection(resp.Sections[0])
	editor := svcctx.EditorFrom(r.Context())
	if _, err := st.Products.Update(r.Context(), id, func(p *content.Product) error {
		return editor.ReplaceSection(p, s, sec)
	}); err != nil {
		writeErr(w, err)
		return
	}
	run.logger.Info("section regenerated", "product", id, "section", s, "elements", len(sec.Elements))

	out := RegenerateResponse{Section: sec, Summary: resp.Summary()}
	out.Meta, out.Usage = run.debug(resp.Prompts, resp.Model, resp.Usage)
	if out.Meta != nil {
		out.Meta.BatchID = resp.BatchID
		out.Meta.Drivers = resp.Drivers
	}
	writeJSON(w, http.StatusOK, out)
}

// driverFor finds the driver that produced section s. Products saved
// without drivers fall back to the section's own name and fields.
func driverFor(p content.Product, s int) prompts.Driver {
	sec := p.Sections[s]
	for _, d := range p.Drivers {
		if d.Name == sec.Name {
			if len(d.Fields) == 0 {
				d.Fields = sec.ResolvedFields
			}
			return d
		}
	}
	return prompts.Driver{
		Name:        sec.Name,
		Description: sec.Description,
		Fields:      sec.ResolvedFields,
	}
}

func (e *RegenerateSectionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <id> <section>",
		Short: "Regenerate one section of a product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := indexArg("section", args[1]); err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp RegenerateResponse
			path := fmt.Sprintf("/api/products/%s/sections/%s/regenerate", args[0], args[1])
			if err := client.Post(cmd.Context(), path, nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
