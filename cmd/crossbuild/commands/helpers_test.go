package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// resetFlags restores every flag variable to its default, since rootCmd and
// its flag bindings are shared across tests.
func resetFlags() {
	platformFlag, archFlag, kindFlag, nameFlag = "", "", "", ""
	configFlag = ""
	verbosity = 0
	quiet = false
	logFormat = "text"
	logFile = ""

	envFormat = "shell"
	envRaw, envAll, envShowSecrets = false, false, false
	envOutput = ""

	runParallel, runEcho, runSilent = false, false, false
	runTimeout = time.Duration(0)

	doctorJSON, doctorQuiet, doctorVerbose, doctorFix = false, false, false, false
	platformsInteractive = false
}

// executeCommand runs rootCmd with args and returns what it wrote to stdout
// and stderr.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags()
	})

	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// writeConfig writes a config file rooting the build tree in a temp dir,
// with extra YAML appended, and returns its path.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "version: 1\npaths:\n  tmp: " + filepath.Join(dir, "tmp") + "\n" + extra
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}
