package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/svcctx"
)

// Setting is one runtime setting with its effective value.
type Setting struct {
	Key         string `json:"key"`
	Value       any    `json:"value"`
	Default     any    `json:"default"`
	Overridden  bool   `json:"overridden"`
	Description string `json:"description"`
}

// SettingsResponse lists every runtime setting in key order.
type SettingsResponse struct {
	Settings []Setting `json:"settings"`
}

// UpdateSettingRequest is the request body for updating a setting.
type UpdateSettingRequest struct {
	Value       any    `json:"value"`
	Description string `json:"description,omitempty"`
}

// ListSettingsEndpoint handles GET /api/settings.
type ListSettingsEndpoint struct{}

func (e *ListSettingsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/settings", e.handler
}

func (e *ListSettingsEndpoint) RequiresInit() bool { return true }

func (e *ListSettingsEndpoint) Group() string { return "settings" }

// handler godoc
//
//	@Summary		List runtime settings
//	@Description	Every overridable setting with its default from the config file and any stored override
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/settings [get]
func (e *ListSettingsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overrides := map[string]config.Entry{}
	if s := svcctx.SettingsFrom(ctx); s != nil {
		all, err := s.GetAll(ctx)
		if err != nil {
			writeErr(w, err)
			return
		}
		overrides = all
	}

	resp := SettingsResponse{}
	for _, def := range config.DefaultEntries(svcctx.ConfigFrom(ctx)) {
		s := Setting{
			Key:         def.Key,
			Value:       def.Value,
			Default:     def.Value,
			Description: def.Description,
		}
		if o, ok := overrides[def.Key]; ok {
			s.Value = o.Value
			s.Overridden = true
			if o.Description != "" {
				s.Description = o.Description
			}
		}
		resp.Settings = append(resp.Settings, s)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListSettingsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List runtime settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SettingsResponse
			if err := client.Get(cmd.Context(), "/api/settings", &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}
			for _, s := range resp.Settings {
				marker := ""
				if s.Overridden {
					marker = fmt.Sprintf("  (default %v)", s.Default)
				}
				fmt.Printf("%-28s %v%s\n", s.Key, s.Value, marker)
			}
			return nil
		},
	}
}

// settingKey reads and checks the {key} path value.
func settingKey(r *http.Request) (string, error) {
	key, err := url.PathUnescape(r.PathValue("key"))
	if err != nil {
		return "", fmt.Errorf("%w: bad encoding", config.ErrInvalidKey)
	}
	if err := config.ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// UpdateSettingEndpoint handles PUT /api/settings/{key}.
type UpdateSettingEndpoint struct{}

func (e *UpdateSettingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/settings/{key}", e.handler
}

func (e *UpdateSettingEndpoint) RequiresInit() bool { return true }

func (e *UpdateSettingEndpoint) Group() string { return "settings" }

// handler godoc
//
//	@Summary		Override a setting
//	@Description	Takes effect on the next request. Only keys listed by GET /api/settings are accepted.
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string					true	"Setting key"
//	@Param			body	body		UpdateSettingRequest	true	"New value"
//	@Success		200		{object}	config.Entry
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/settings/{key} [put]
func (e *UpdateSettingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, err := settingKey(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req UpdateSettingRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	s := svcctx.SettingsFrom(r.Context())
	if s == nil {
		writeErr(w, errStoreUnavailable)
		return
	}
	if err := s.Set(r.Context(), key, req.Value, req.Description); err != nil {
		writeErr(w, err)
		return
	}
	entry, err := s.Get(r.Context(), key)
	if err != nil {
		writeErr(w, err)
		return
	}
	svcctx.LoggerFrom(r.Context()).Info("setting updated", "key", key, "value", entry.Value)
	writeJSON(w, http.StatusOK, entry)
}

func (e *UpdateSettingEndpoint) Command(getServerURL func() string) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Override a runtime setting",
		Long: `Override a runtime setting. The value is parsed as JSON when possible,
so numbers and booleans keep their type; anything else is sent as a string.

Examples:
  folio api settings set generation.temperature 0.2
  folio api settings set generation.debug true
  folio api settings set defaults.llm_provider openai`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any
			if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
				value = args[1]
			}
			client := api.NewClient(getServerURL())
			var entry config.Entry
			path := "/api/settings/" + url.PathEscape(args[0])
			if err := client.Put(cmd.Context(), path, UpdateSettingRequest{Value: value, Description: description}, &entry); err != nil {
				return err
			}
			return api.Output(entry)
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Note stored with the override")
	return cmd
}

// ResetSettingEndpoint handles DELETE /api/settings/{key}.
type ResetSettingEndpoint struct{}

func (e *ResetSettingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/settings/{key}", e.handler
}

func (e *ResetSettingEndpoint) RequiresInit() bool { return true }

func (e *ResetSettingEndpoint) Group() string { return "settings" }

// handler godoc
//
//	@Summary	Reset a setting to its default
//	@Tags		settings
//	@Produce	json
//	@Param		key	path		string	true	"Setting key"
//	@Success	200	{object}	Setting
//	@Failure	400	{object}	ErrorResponse
//	@Router		/api/settings/{key} [delete]
func (e *ResetSettingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	key, err := settingKey(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	s := svcctx.SettingsFrom(r.Context())
	if s == nil {
		writeErr(w, errStoreUnavailable)
		return
	}
	if err := config.ResetToDefault(r.Context(), s, key); err != nil {
		writeErr(w, err)
		return
	}
	def := config.GetDefault(key, svcctx.ConfigFrom(r.Context()))
	writeJSON(w, http.StatusOK, Setting{
		Key:         def.Key,
		Value:       def.Value,
		Default:     def.Value,
		Description: def.Description,
	})
}

func (e *ResetSettingEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <key>",
		Short: "Reset a setting to the config file value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp Setting
			if err := client.Delete(cmd.Context(), "/api/settings/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			fmt.Printf("%s reset to %v\n", resp.Key, resp.Value)
			return nil
		},
	}
}
