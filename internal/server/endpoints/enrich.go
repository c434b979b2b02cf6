package endpoints

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/content"
	"github.com/jackzampolin/folio/internal/enrich"
	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// EnrichRequest is the body of both enrichment endpoints. Text is the
// element being enriched. ProductID plus Key (dissect) or PIndex and
// QIndex (deeper) also attach the result to a stored product.
type EnrichRequest struct {
	Text        string            `json:"text"`
	Context     map[string]string `json:"context,omitempty"`
	Perspective string            `json:"perspective,omitempty"`
	Kind        string            `json:"kind,omitempty"`

	ProductID string `json:"productId,omitempty"`
	Key       string `json:"key,omitempty"`
	PIndex    *int   `json:"pIndex,omitempty"`
	QIndex    *int   `json:"qIndex,omitempty"`
}

// item builds the enrichment input. With a ProductID, the stored product
// must exist and pass check before anything is generated; it also fills
// in the context and output type when the request leaves them out.
func (req *EnrichRequest) item(ctx context.Context, check func(*content.Product) error) (enrich.Item, error) {
	it := enrich.Item{
		Text:        req.Text,
		Context:     req.Context,
		Perspective: req.Perspective,
		Kind:        req.Kind,
	}
	if req.ProductID == "" {
		return it, nil
	}
	st := svcctx.StoreFrom(ctx)
	if st == nil {
		return it, errStoreUnavailable
	}
	p, err := st.Products.Get(ctx, req.ProductID)
	if err != nil {
		return it, err
	}
	if err := check(&p); err != nil {
		return it, err
	}
	if len(it.Context) == 0 {
		it.Context = p.Context
	}
	if it.Kind == "" {
		it.Kind = p.OutputType
	}
	return it, nil
}

// DissectResponse is the body of a successful dissection.
type DissectResponse struct {
	Dissection *content.DissectionData `json:"dissection"`
	Attached   bool                    `json:"attached,omitempty"`
	Meta       *DebugMeta              `json:"_meta,omitempty"`
	Usage      *metrics.DebugUsage     `json:"_usage,omitempty"`
}

// DissectEndpoint handles POST /api/enrich/dissect.
type DissectEndpoint struct{}

func (e *DissectEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/enrich/dissect", e.handler
}

func (e *DissectEndpoint) RequiresInit() bool { return true }

func (e *DissectEndpoint) Group() string { return "enrich" }

// handler godoc
//
//	@Summary		Dissect one element
//	@Description	Returns a thinking framework, checklist, resources and a key insight for the element
//	@Tags			enrich
//	@Accept			json
//	@Produce		json
//	@Param			request	body		EnrichRequest	true	"Element to dissect"
//	@Success		200		{object}	DissectResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/enrich/dissect [post]
func (e *DissectEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.ProductID != "" && req.Key == "" {
		writeErr(w, &prompts.ValidationError{Problems: []string{"key is required with productId"}})
		return
	}
	if req.Key != "" {
		if _, err := content.ParseKey(req.Key); err != nil {
			writeErr(w, err)
			return
		}
	}
	it, err := req.item(r.Context(), func(p *content.Product) error {
		return p.CheckKey(req.Key)
	})
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

	data, usage, err := enrich.NewDissector(run.gen).Dissect(ctx, it)
	if err != nil {
		writeErr(w, err)
		return
	}

	out := DissectResponse{Dissection: data}
	if req.ProductID != "" {
		if err := attach(r, req.ProductID, func(ed *content.Editor, p *content.Product) error {
			return ed.AttachDissection(p, req.Key, *data)
		}); err != nil {
			writeErr(w, err)
			return
		}
		out.Attached = true
	}
	out.Meta, out.Usage = run.debug(nil, run.gen.Model(), usage)
	writeJSON(w, http.StatusOK, out)
}

func (e *DissectEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req EnrichRequest
	var contextPairs []string
	cmd := &cobra.Command{
		Use:   "dissect <text>",
		Short: "Dissect one element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs(contextPairs)
			if err != nil {
				return err
			}
			req.Text = args[0]
			if len(pairs) > 0 {
				req.Context = pairs
			}
			client := api.NewClient(getServerURL())
			var resp DissectResponse
			if err := client.Post(cmd.Context(), "/api/enrich/dissect", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	enrichFlags(cmd, &req, &contextPairs)
	cmd.Flags().StringVar(&req.Key, "key", "", `Element key to attach to (e.g. "0-2")`)
	return cmd
}

func enrichFlags(cmd *cobra.Command, req *EnrichRequest, contextPairs *[]string) {
	cmd.Flags().StringArrayVarP(contextPairs, "context", "c", nil, "Context entry as key=value (repeatable)")
	cmd.Flags().StringVar(&req.Perspective, "perspective", "", "Section the element belongs to")
	cmd.Flags().StringVar(&req.Kind, "type", "", "Output type (default questions)")
	cmd.Flags().StringVar(&req.ProductID, "product", "", "Attach the result to this product")
}

// DeeperResponse is the body of a successful deeper-questions call.
type DeeperResponse struct {
	Deeper   *content.DeeperData `json:"deeper"`
	Attached bool                `json:"attached,omitempty"`
	Meta     *DebugMeta          `json:"_meta,omitempty"`
	Usage    *metrics.DebugUsage `json:"_usage,omitempty"`
}

// DeeperEndpoint handles POST /api/enrich/deeper.
type DeeperEndpoint struct{}

func (e *DeeperEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/enrich/deeper", e.handler
}

func (e *DeeperEndpoint) RequiresInit() bool { return true }

func (e *DeeperEndpoint) Group() string { return "enrich" }

// handler godoc
//
//	@Summary		Generate deeper follow-up questions
//	@Description	Returns second- and third-order follow-ups with reasoning
//	@Tags			enrich
//	@Accept			json
//	@Produce		json
//	@Param			request	body		EnrichRequest	true	"Question to deepen"
//	@Success		200		{object}	DeeperResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/enrich/deeper [post]
func (e *DeeperEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.ProductID != "" && (req.PIndex == nil || req.QIndex == nil) {
		writeErr(w, &prompts.ValidationError{Problems: []string{"pIndex and qIndex are required with productId"}})
		return
	}
	it, err := req.item(r.Context(), func(p *content.Product) error {
		return p.CheckElement(*req.PIndex, *req.QIndex)
	})
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

	data, usage, err := enrich.NewDeepener(run.gen).Deepen(ctx, it)
	if err != nil {
		writeErr(w, err)
		return
	}

	out := DeeperResponse{Deeper: data}
	if req.ProductID != "" {
		if err := attach(r, req.ProductID, func(ed *content.Editor, p *content.Product) error {
			return ed.AttachDeeper(p, *req.PIndex, *req.QIndex, *data)
		}); err != nil {
			writeErr(w, err)
			return
		}
		out.Attached = true
	}
	out.Meta, out.Usage = run.debug(nil, run.gen.Model(), usage)
	writeJSON(w, http.StatusOK, out)
}

func (e *DeeperEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req EnrichRequest
	var contextPairs []string
	var pIndex, qIndex int
	cmd := &cobra.Command{
		Use:   "deeper <question>",
		Short: "Generate follow-up questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, err := parsePairs(contextPairs)
			if err != nil {
				return err
			}
			req.Text = args[0]
			if len(pairs) > 0 {
				req.Context = pairs
			}
			if cmd.Flags().Changed("p") {
				req.PIndex = &pIndex
			}
			if cmd.Flags().Changed("q") {
				req.QIndex = &qIndex
			}
			client := api.NewClient(getServerURL())
			var resp DeeperResponse
			if err := client.Post(cmd.Context(), "/api/enrich/deeper", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	enrichFlags(cmd, &req, &contextPairs)
	cmd.Flags().IntVar(&pIndex, "p", 0, "Section index of the question")
	cmd.Flags().IntVar(&qIndex, "q", 0, "Element index of the question")
	return cmd
}

// attach applies fn to a stored product.
func attach(r *http.Request, id string, fn func(*content.Editor, *content.Product) error) error {
	st := storeFrom(r)
	if st == nil {
		return errStoreUnavailable
	}
	editor := svcctx.EditorFrom(r.Context())
	_, err := st.Products.Update(r.Context(), id, func(p *content.Product) error {
		return fn(editor, p)
	})
	return err
}
