package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/batch"
	"github.com/jackzampolin/folio/internal/content"
	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/section"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// GenerateRequest is the body of POST /api/generate/{type}.
type GenerateRequest struct {
	Context               map[string]string              `json:"context"`
	SectionDrivers        []prompts.Driver               `json:"sectionDrivers,omitempty"`
	InstructionDirectives []prompts.InstructionDirective `json:"instructionDirectives,omitempty"`
	SectionLabel          string                         `json:"sectionLabel,omitempty"`

	// Fields replaces the output type's default fields for every driver
	// that does not define its own.
	Fields []prompts.FieldSpec `json:"fields,omitempty"`

	// Save persists the result as a product.
	Save  bool   `json:"save,omitempty"`
	Title string `json:"title,omitempty"`
}

// GenerateResponse is the body of a successful generation.
type GenerateResponse struct {
	Sections        []section.Section   `json:"sections"`
	PerDriverFields bool                `json:"_perDriverFields,omitempty"`
	Summary         string              `json:"summary"`
	ProductID       string              `json:"productId,omitempty"`
	Meta            *DebugMeta          `json:"_meta,omitempty"`
	Usage           *metrics.DebugUsage `json:"_usage,omitempty"`
}

// Validate checks the request against kind and fills in its defaults.
// Every problem is reported at once.
func (req *GenerateRequest) Validate(kind *prompts.Kind) error {
	verr := &prompts.ValidationError{}
	merge := func(err error) {
		var v *prompts.ValidationError
		if errors.As(err, &v) {
			verr.Problems = append(verr.Problems, v.Problems...)
		}
	}

	hasContext := false
	for _, v := range req.Context {
		if strings.TrimSpace(v) != "" {
			hasContext = true
			break
		}
	}
	if !hasContext {
		verr.Problems = append(verr.Problems, "context must contain at least one non-empty value")
	}

	if len(req.SectionDrivers) == 0 {
		req.SectionDrivers = kind.DefaultDrivers
	} else {
		merge(prompts.ValidateDrivers(req.SectionDrivers))
	}
	if len(req.InstructionDirectives) > 0 {
		merge(prompts.ValidateDirectives(req.InstructionDirectives))
	}
	if len(req.Fields) > 0 {
		merge(prompts.ValidateFields(req.Fields))
	} else {
		req.Fields = kind.DefaultFields
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

// GenerateEndpoint handles POST /api/generate/{type}.
type GenerateEndpoint struct{}

func (e *GenerateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/generate/{type}", e.handler
}

func (e *GenerateEndpoint) RequiresInit() bool { return true }

func (e *GenerateEndpoint) Group() string { return "generate" }

// handler godoc
//
//	@Summary		Generate a product
//	@Description	Runs one generation call per section driver concurrently and returns the non-empty sections in driver order
//	@Tags			generate
//	@Accept			json
//	@Produce		json
//	@Param			type	path		string			true	"Output type (questions, checklist, playbook, dossier)"
//	@Param			request	body		GenerateRequest	true	"Generation request"
//	@Success		200		{object}	GenerateResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse	"no content generated"
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/generate/{type} [post]
func (e *GenerateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	kind, err := prompts.LookupKind(r.PathValue("type"))
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %s", err, r.PathValue("type")))
		return
	}

	var req GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := req.Validate(kind); err != nil {
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

	label := kind.Label(req.SectionLabel)
	orch := batch.New(run.gen, batch.WithLogger(run.logger), batch.WithMaxConcurrency(run.rt.MaxConcurrency))
	resp := orch.Run(ctx, batch.Request{
		Kind:          kind,
		Context:       req.Context,
		Drivers:       req.SectionDrivers,
		SectionLabel:  label,
		Directives:    req.InstructionDirectives,
		DefaultFields: req.Fields,
	})
	if err := resp.Err(); err != nil {
		writeErr(w, err)
		return
	}

	out := GenerateResponse{
		Sections:        resp.Sections,
		PerDriverFields: resp.PerDriverFields,
		Summary:         resp.Summary(),
	}
	out.Meta, out.Usage = run.debug(resp.Prompts, resp.Model, resp.Usage)
	if out.Meta != nil {
		out.Meta.BatchID = resp.BatchID
		out.Meta.Drivers = resp.Drivers
	}

	if req.Save {
		st := storeOrFail(w, r)
		if st == nil {
			return
		}
		editor := svcctx.EditorFrom(r.Context())
		product, err := content.NewProduct(editor.NewID(), editor.Now(), content.Params{
			Title:        req.Title,
			OutputType:   kind.Name,
			Context:      req.Context,
			SectionLabel: label,
			Drivers:      req.SectionDrivers,
			Directives:   req.InstructionDirectives,
			Sections:     resp.Sections,
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		if err := st.Products.Put(r.Context(), *product); err != nil {
			writeErr(w, fmt.Errorf("save product: %w", err))
			return
		}
		out.ProductID = product.ID
		run.logger.Info("product saved", "id", product.ID, "type", kind.Name, "sections", len(product.Sections))
	}

	writeJSON(w, http.StatusOK, out)
}

func (e *GenerateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var contextPairs, driverPairs []string
	var file, label, title string
	var save bool

	cmd := &cobra.Command{
		Use:   "run <type>",
		Short: "Generate a product",
		Long: `Generate a product of the given output type.

Context is passed as key=value pairs. Drivers default to the output type's
built-in list; pass --driver "Name: description" to override them. A full
request body can be read from a JSON file with --file.

Examples:
  folio api generate run questions -c role=CISO -c industry=Manufacturing
  folio api generate run checklist -c service="SOC 2 audit" --save
  folio api generate run playbook --file request.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req GenerateRequest
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &req); err != nil {
					return fmt.Errorf("parse %s: %w", file, err)
				}
			}
			pairs, err := parsePairs(contextPairs)
			if err != nil {
				return err
			}
			if req.Context == nil {
				req.Context = map[string]string{}
			}
			for k, v := range pairs {
				req.Context[k] = v
			}
			for _, d := range driverPairs {
				name, desc, _ := strings.Cut(d, ":")
				req.SectionDrivers = append(req.SectionDrivers, prompts.Driver{
					Name:        strings.TrimSpace(name),
					Description: strings.TrimSpace(desc),
				})
			}
			if label != "" {
				req.SectionLabel = label
			}
			if title != "" {
				req.Title = title
			}
			req.Save = req.Save || save

			client := api.NewClient(getServerURL())
			var resp GenerateResponse
			if err := client.Post(cmd.Context(), "/api/generate/"+args[0], req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().StringArrayVarP(&contextPairs, "context", "c", nil, "Context entry as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&driverPairs, "driver", nil, `Section driver as "Name: description" (repeatable)`)
	cmd.Flags().StringVar(&file, "file", "", "Read the request body from a JSON file")
	cmd.Flags().StringVar(&label, "label", "", "Section label (e.g. perspective, phase)")
	cmd.Flags().StringVar(&title, "title", "", "Product title when saving")
	cmd.Flags().BoolVar(&save, "save", false, "Save the result as a product")
	return cmd
}

// parsePairs parses key=value arguments.
func parsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid key=value pair: %q", p)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}
