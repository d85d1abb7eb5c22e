package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jmylchreest/vetprice/internal/version"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute(%v) error = %v\n%s", args, err, buf.String())
	}
	return buf.String()
}

func TestSitesCommand(t *testing.T) {
	out := execute(t, "sites")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 sites, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "cobasi") || !strings.Contains(lines[0], "https://www.cobasi.com.br") {
		t.Errorf("unexpected first line %q", lines[0])
	}
}

func TestTermsCommand(t *testing.T) {
	out := execute(t, "terms")
	if !strings.HasPrefix(out, "Simparic") {
		t.Errorf("expected catalog order, got %q", out)
	}
	if !strings.Contains(out, "Bravecto") || !strings.Contains(out, "90 dias") {
		t.Errorf("expected Bravecto metadata, got %q", out)
	}
}

func TestVersionCommand_JSON(t *testing.T) {
	out := execute(t, "version", "--json")
	var info version.Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("version --json is not JSON: %v\n%s", err, out)
	}
	if info.Version != version.Version {
		t.Errorf("Version = %q, want %q", info.Version, version.Version)
	}
}
