package prompts

import (
	"errors"
	"strings"
	"testing"
)

func questionsKind(t *testing.T) *Kind {
	t.Helper()
	k, err := LookupKind("questions")
	if err != nil {
		t.Fatalf("LookupKind() error = %v", err)
	}
	return k
}

func TestAssemble_Deterministic(t *testing.T) {
	k := questionsKind(t)
	req := Request{
		Context: map[string]string{
			"role":      "CISO",
			"industry":  "Manufacturing",
			"situation": "post-incident review",
			"service":   "",
		},
		Driver:       Driver{Name: "Strategic", Description: "Direction and priorities"},
		SectionLabel: "perspective",
	}

	first, err := Assemble(k, req)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	for i := 0; i < 20; i++ {
		got, err := Assemble(k, req)
		if err != nil {
			t.Fatalf("Assemble() error = %v", err)
		}
		if got != first {
			t.Fatalf("Assemble() run %d differs:\n%s\n---\n%s", i, got, first)
		}
	}
}

func TestRenderContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  map[string]string
		want string
	}{
		{
			name: "sorted by key",
			ctx:  map[string]string{"role": "CISO", "industry": "Manufacturing"},
			want: "- Industry: Manufacturing\n- Role: CISO",
		},
		{
			name: "omits empty and whitespace values",
			ctx:  map[string]string{"role": "CISO", "service": "", "situation": "  \t\n "},
			want: "- Role: CISO",
		},
		{
			name: "collapses whitespace",
			ctx:  map[string]string{"situation": "  board   asked\nfor a\treview "},
			want: "- Situation: board asked for a review",
		},
		{
			name: "humanizes keys",
			ctx:  map[string]string{"company_size": "500", "teamSize": "12"},
			want: "- Company Size: 500\n- Team Size: 12",
		},
		{
			name: "nothing provided",
			ctx:  map[string]string{"role": " "},
			want: "- (no context provided)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderContext(tt.ctx); got != tt.want {
				t.Errorf("RenderContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssemble_DefaultTemplate(t *testing.T) {
	k := questionsKind(t)
	got, err := Assemble(k, Request{
		Context: map[string]string{"role": "CISO"},
		Driver:  Driver{Name: "Financial", Description: "Budgets and returns"},
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	for _, want := range []string{
		k.Role,
		"from the Financial perspective",
		"CONTEXT:\n- Role: CISO",
		"PERSPECTIVE DEFINITION:\nFinancial: Budgets and returns",
		"GUIDELINES:\n1. ",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "{driver}") || strings.Contains(got, "{label}") {
		t.Errorf("placeholders not substituted:\n%s", got)
	}
	if strings.Contains(got, "OUTPUT FIELDS") {
		t.Error("OUTPUT FIELDS block should only appear with overrides")
	}
}

func TestAssemble_Directives(t *testing.T) {
	k := questionsKind(t)
	directives := []InstructionDirective{
		{Label: "Role", Content: "You are an auditor."},
		{Label: "Verification", Content: "Check every item twice."},
		{Label: "Task", Content: "Draft audit questions."},
	}
	got, err := Assemble(k, Request{
		Context:      map[string]string{"industry": "Retail"},
		Driver:       Driver{Name: "Phase <1>", Description: "Scope & {plan}"},
		SectionLabel: "phase",
		Directives:   directives,
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	want := strings.Join([]string{
		"You are an auditor.",
		"",
		"Draft audit questions.",
		"",
		"CONTEXT:",
		"- Industry: Retail",
		"",
		"DRIVER DEFINITION (PHASE):",
		"Phase <1>: Scope & {plan}",
		"",
		"INSTRUCTIONS:",
		"1. Role: You are an auditor.",
		"2. Verification: Check every item twice.",
		"3. Task: Draft audit questions.",
	}, "\n")
	if got != want {
		t.Errorf("Assemble() =\n%s\nwant\n%s", got, want)
	}
	if strings.Contains(got, k.Role) {
		t.Error("directive prompt should not include the default role sentence")
	}
}

func TestAssemble_FieldOverrides(t *testing.T) {
	k := questionsKind(t)
	got, err := Assemble(k, Request{
		Driver: Driver{Name: "Controls"},
		FieldOverrides: []FieldSpec{
			{Key: "control", Label: "Control", Primary: true},
			{Key: "matrix", Label: "RACI", Type: FieldTable, Columns: []string{"role", "duty"}},
		},
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	wantSuffix := "OUTPUT FIELDS:\nEach element must contain exactly these fields:\n" +
		"- control: Control (primary)\n" +
		"- matrix: RACI (table with columns: role, duty)"
	if !strings.HasSuffix(got, wantSuffix) {
		t.Errorf("prompt should end with override block, got:\n%s", got)
	}
}

func TestAssemble_Errors(t *testing.T) {
	if _, err := Assemble(nil, Request{Driver: Driver{Name: "x"}}); err == nil {
		t.Error("expected error for nil kind")
	}
	if _, err := Assemble(questionsKind(t), Request{Driver: Driver{Name: "  "}}); err == nil {
		t.Error("expected error for blank driver name")
	}
}

func TestLookupKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := LookupKind(strings.ToUpper(k.Name))
		if err != nil || got != k {
			t.Errorf("LookupKind(%q) = %v, %v", k.Name, got, err)
		}
		if err := ValidateDrivers(k.DefaultDrivers); err != nil {
			t.Errorf("%s default drivers invalid: %v", k.Name, err)
		}
		if err := ValidateFields(k.DefaultFields); err != nil {
			t.Errorf("%s default fields invalid: %v", k.Name, err)
		}
	}
	if _, err := LookupKind("crossword"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("LookupKind(crossword) error = %v, want ErrUnknownKind", err)
	}
	if n := len(catalog["questions"].DefaultDrivers); n != 5 {
		t.Errorf("questions has %d built-in perspectives, want 5", n)
	}
}

func TestHashText(t *testing.T) {
	a := HashText("prompt")
	if a != HashText("prompt") {
		t.Error("HashText not stable")
	}
	if a == HashText("prompt ") {
		t.Error("HashText should differ for different text")
	}
	if len(a) != 64 {
		t.Errorf("HashText length = %d, want 64", len(a))
	}
}
