package foodkit

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runCLI executes rootCmd with fresh flag values and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// testEnv returns the global flags pointing at a temp database and an empty
// config file.
func testEnv(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return []string{"--db", filepath.Join(dir, "foodkit.db"), "--config", configFile}
}

func TestRootHelp(t *testing.T) {
	out, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("execute root help: %v", err)
	}
	if !strings.Contains(out, "nutrients") {
		t.Fatalf("expected help output to list commands, got %q", out)
	}
}

func TestInitCommandIdempotent(t *testing.T) {
	env := testEnv(t)
	for i := 0; i < 2; i++ {
		if _, err := runCLI(t, append(env, "init")...); err != nil {
			t.Fatalf("init run %d failed: %v", i+1, err)
		}
	}
}

func TestInitWritesConfig(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "nested", "config.yaml")
	dbFile := filepath.Join(dir, "foodkit.db")
	if _, err := runCLI(t, "--db", dbFile, "--config", filepath.Join(dir, "missing.yaml"), "init"); err == nil {
		t.Fatalf("expected explicit missing config to fail")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(configFile, []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := runCLI(t, "--db", dbFile, "--config", configFile, "init", "--write-config")
	if err != nil {
		t.Fatalf("init --write-config: %v", err)
	}
	if !strings.Contains(out, "Wrote config") {
		t.Fatalf("unexpected output: %q", out)
	}
	b, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(b), dbFile) || !strings.Contains(string(b), "level: info") {
		t.Fatalf("unexpected config file:\n%s", b)
	}
}

func TestInvalidLogLevelFails(t *testing.T) {
	env := testEnv(t)
	if _, err := runCLI(t, append(env, "--log-level", "loud", "init")...); err == nil {
		t.Fatalf("expected invalid log level to fail")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "foodkit dev") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestUnitsConvert(t *testing.T) {
	out, err := runCLI(t, "units", "convert", "1", "kg", "g")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if strings.TrimSpace(out) != "1 kg = 1000 g" {
		t.Fatalf("unexpected convert output %q", out)
	}
	if _, err := runCLI(t, "units", "convert", "1", "kcal", "g"); err == nil {
		t.Fatalf("expected cross-kind conversion to fail")
	}
}
