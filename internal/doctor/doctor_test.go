package doctor

import (
	"testing"
	"time"
)

// stubCheck returns a fixed result and counts fixes.
type stubCheck struct {
	name   string
	result *CheckResult
	fixes  int
	fixErr bool
}

func (c *stubCheck) Name() string      { return c.name }
func (c *stubCheck) Category() string  { return "test" }
func (c *stubCheck) Run() *CheckResult { return c.result }
func (c *stubCheck) CanFix() bool      { return c.result.Fixable }

func (c *stubCheck) Fix() []FixResult {
	c.fixes++
	return []FixResult{{Path: c.name, Fixed: !c.fixErr}}
}

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []Severity
		wantPassed   int
		wantInfo     int
		wantWarnings int
		wantErrors   int
	}{
		{"empty runner", nil, 0, 0, 0, 0},
		{"single pass", []Severity{SeverityPass}, 1, 0, 0, 0},
		{"single info", []Severity{SeverityInfo}, 0, 1, 0, 0},
		{"single warning", []Severity{SeverityWarning}, 0, 0, 1, 0},
		{"single error", []Severity{SeverityError}, 0, 0, 0, 1},
		{
			"mixed severities",
			[]Severity{SeverityPass, SeverityPass, SeverityInfo, SeverityWarning, SeverityWarning, SeverityError},
			2, 1, 2, 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner()
			for _, s := range tt.statuses {
				r.AddCheck(&stubCheck{result: &CheckResult{Status: s}})
			}

			before := time.Now().UTC()
			report := r.Run()
			after := time.Now().UTC()

			if report.Timestamp.Before(before) || report.Timestamp.After(after) {
				t.Errorf("Timestamp %v not in expected range [%v, %v]", report.Timestamp, before, after)
			}
			if len(report.Results) != len(tt.statuses) {
				t.Errorf("Results count = %d, want %d", len(report.Results), len(tt.statuses))
			}

			got := report.Summary
			if got.Passed != tt.wantPassed || got.Info != tt.wantInfo ||
				got.Warnings != tt.wantWarnings || got.Errors != tt.wantErrors {
				t.Errorf("Summary = %+v, want passed=%d info=%d warnings=%d errors=%d",
					got, tt.wantPassed, tt.wantInfo, tt.wantWarnings, tt.wantErrors)
			}
			if report.HasErrors() != (tt.wantErrors > 0) {
				t.Errorf("HasErrors() = %v", report.HasErrors())
			}
			if report.HasWarnings() != (tt.wantWarnings > 0) {
				t.Errorf("HasWarnings() = %v", report.HasWarnings())
			}
		})
	}
}

func TestRunner_Run_ResultsOrder(t *testing.T) {
	r := NewRunner()
	names := []string{"config", "expansion", "tools"}
	for _, name := range names {
		r.AddCheck(&stubCheck{name: name, result: &CheckResult{Name: name}})
	}

	report := r.Run()
	for i, want := range names {
		if report.Results[i].Name != want {
			t.Errorf("Results[%d].Name = %q, want %q", i, report.Results[i].Name, want)
		}
	}
}

func TestRunner_Fix(t *testing.T) {
	r := NewRunner()
	fixable := &stubCheck{name: "dirs", result: &CheckResult{Status: SeverityWarning, Fixable: true}}
	clean := &stubCheck{name: "tools", result: &CheckResult{Status: SeverityPass}}
	r.AddCheck(fixable)
	r.AddCheck(clean)

	r.Run()
	results := r.Fix()

	if len(results) != 1 || results[0].Path != "dirs" || !results[0].Fixed {
		t.Errorf("Fix() = %+v, want one fixed result for dirs", results)
	}
	if fixable.fixes != 1 || clean.fixes != 0 {
		t.Errorf("fix counts = %d, %d; want 1, 0", fixable.fixes, clean.fixes)
	}
}

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		s    Severity
		want string
	}{
		{SeverityPass, "pass"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{Severity(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
