package commands

import (
	"runtime"
	"strings"
	"testing"

	"github.com/thoreinstein/crossbuild/cmd"
)

func executeVersionCommand(t *testing.T) string {
	t.Helper()
	out, _, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	return out
}

func TestVersionCommand_OutputFormat(t *testing.T) {
	output := executeVersionCommand(t)

	for _, want := range []string{"crossbuild version", "commit:", "built:", "go:", "host:", "build:"} {
		if !strings.Contains(output, want) {
			t.Errorf("version output missing %q\nGot:\n%s", want, output)
		}
	}
}

func TestVersionCommand_GoVersion(t *testing.T) {
	output := executeVersionCommand(t)

	if !strings.Contains(output, runtime.Version()) {
		t.Errorf("version output should contain Go version %q\nGot:\n%s", runtime.Version(), output)
	}
}

func TestVersionCommand_Values(t *testing.T) {
	output := executeVersionCommand(t)
	version, commit, date := cmd.Resolved()

	tests := []struct {
		name     string
		contains string
	}{
		{"version", "crossbuild version " + version},
		{"commit", "commit:    " + commit},
		{"date", "built:     " + date},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(output, tt.contains) {
				t.Errorf("version output should contain %q\nGot:\n%s", tt.contains, output)
			}
		})
	}
}

func TestVersionCommand_LineCount(t *testing.T) {
	output := executeVersionCommand(t)
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 6 {
		t.Errorf("version output has %d lines, want 6\nOutput:\n%s", len(lines), output)
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("detail line should be indented: %q", line)
		}
	}
}

func TestVersionCommand_CommandMetadata(t *testing.T) {
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}
	if versionCmd.Short == "" {
		t.Error("versionCmd.Short should not be empty")
	}
	if versionCmd.Long == "" {
		t.Error("versionCmd.Long should not be empty")
	}
}
