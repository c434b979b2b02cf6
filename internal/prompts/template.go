package prompts

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"text/template"
)

//go:embed templates/default.tmpl
var defaultTemplateText string

var defaultTemplate = template.Must(template.New("default").Option("missingkey=error").Parse(defaultTemplateText))

// defaultData feeds templates/default.tmpl.
type defaultData struct {
	Role              string
	Task              string
	Context           string
	Heading           string
	DriverName        string
	DriverDescription string
	Guidelines        []string
}

func renderDefault(data defaultData) (string, error) {
	var buf bytes.Buffer
	if err := defaultTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render default template: %w", err)
	}
	return buf.String(), nil
}

// DefaultTemplate returns the embedded template text, for display.
func DefaultTemplate() string {
	return defaultTemplateText
}

// HashText returns a SHA256 hash of the text, used to tie debug log entries
// to the exact prompt that was sent.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
