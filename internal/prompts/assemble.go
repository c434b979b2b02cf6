package prompts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// framingLabels are the directive labels that open a directive-driven prompt.
var framingLabels = map[string]bool{
	"role":    true,
	"task":    true,
	"process": true,
}

// Assemble builds the prompt for one driver.
//
// With directives the prompt is framing (Role/Task/Process directives in
// order), CONTEXT, DRIVER DEFINITION and a numbered INSTRUCTIONS list.
// Without directives the kind's default template is rendered. Field
// overrides append an OUTPUT FIELDS block in either case.
func Assemble(kind *Kind, req Request) (string, error) {
	if kind == nil {
		return "", errors.New("assemble: nil kind")
	}
	name := CollapseWhitespace(req.Driver.Name)
	if name == "" {
		return "", errors.New("assemble: driver name is required")
	}
	desc := CollapseWhitespace(req.Driver.Description)
	label := kind.Label(req.SectionLabel)
	ctxBlock := RenderContext(req.Context)

	var (
		body string
		err  error
	)
	if len(req.Directives) > 0 {
		body = assembleDirected(req.Directives, ctxBlock, name, desc, label)
	} else {
		body, err = assembleDefault(kind, ctxBlock, name, desc, label)
		if err != nil {
			return "", err
		}
	}

	body = strings.TrimSpace(body)
	if len(req.FieldOverrides) > 0 {
		body += "\n\n" + strings.TrimSpace(renderFields(req.FieldOverrides))
	}
	return body, nil
}

func assembleDirected(directives []InstructionDirective, ctxBlock, name, desc, label string) string {
	var b strings.Builder
	for _, d := range directives {
		if framingLabels[strings.ToLower(strings.TrimSpace(d.Label))] {
			b.WriteString(strings.TrimSpace(d.Content))
			b.WriteString("\n\n")
		}
	}

	b.WriteString("CONTEXT:\n")
	b.WriteString(ctxBlock)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "DRIVER DEFINITION (%s):\n", strings.ToUpper(label))
	b.WriteString(driverLine(name, desc))
	b.WriteString("\n\n")

	b.WriteString("INSTRUCTIONS:\n")
	for i, d := range directives {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, CollapseWhitespace(d.Label), strings.TrimSpace(d.Content))
	}
	return b.String()
}

func assembleDefault(kind *Kind, ctxBlock, name, desc, label string) (string, error) {
	sub := strings.NewReplacer("{driver}", name, "{label}", label)
	guidelines := make([]string, len(kind.Guidelines))
	for i, g := range kind.Guidelines {
		guidelines[i] = fmt.Sprintf("%d. %s", i+1, sub.Replace(g))
	}
	return renderDefault(defaultData{
		Role:              kind.Role,
		Task:              sub.Replace(kind.Task),
		Context:           ctxBlock,
		Heading:           strings.ToUpper(label) + " DEFINITION",
		DriverName:        name,
		DriverDescription: desc,
		Guidelines:        guidelines,
	})
}

func driverLine(name, desc string) string {
	if desc == "" {
		return name
	}
	return name + ": " + desc
}

// RenderContext renders context pairs as a bullet list sorted by key.
// Entries whose value is empty after whitespace collapse are omitted.
func RenderContext(ctx map[string]string) string {
	keys := make([]string, 0, len(ctx))
	for k, v := range ctx {
		if CollapseWhitespace(k) == "" || CollapseWhitespace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "- (no context provided)"
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = fmt.Sprintf("- %s: %s", HumanizeKey(k), CollapseWhitespace(ctx[k]))
	}
	return strings.Join(lines, "\n")
}

func renderFields(fields []FieldSpec) string {
	var b strings.Builder
	b.WriteString("OUTPUT FIELDS:\nEach element must contain exactly these fields:\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "- %s: %s", f.Key, CollapseWhitespace(f.Label))
		if f.Kind() == FieldTable {
			fmt.Fprintf(&b, " (table with columns: %s)", strings.Join(f.Columns, ", "))
		}
		if f.Primary {
			b.WriteString(" (primary)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HumanizeKey turns a context key into a display label:
// "industry" -> "Industry", "company_size" -> "Company Size",
// "teamSize" -> "Team Size".
func HumanizeKey(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(strings.TrimSpace(key))
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

// CollapseWhitespace trims s and replaces every whitespace run with one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
