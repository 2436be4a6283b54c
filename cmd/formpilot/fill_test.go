package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestFilledName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"anmeldung.pdf", "anmeldung-filled.pdf"},
		{"/tmp/forms/a.b.pdf", "/tmp/forms/a.b-filled.pdf"},
		{"noext", "noext-filled"},
	}

	for _, tt := range tests {
		if got := filledName(tt.input); got != tt.want {
			t.Errorf("filledName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func newOverridesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("overrides", "", "")
	cmd.Flags().StringToString("set", nil, "")
	return cmd
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	if err := os.WriteFile(path, []byte(`{"Telefon_1": "044 000 00 00", "Ort": "Bern"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newOverridesCmd()
	if err := cmd.Flags().Parse([]string{"--overrides", path, "--set", "Telefon_1=079 111 22 33"}); err != nil {
		t.Fatal(err)
	}

	overrides, err := loadOverrides(cmd)
	if err != nil {
		t.Fatalf("loadOverrides() error = %v", err)
	}
	if overrides["Telefon_1"] != "079 111 22 33" {
		t.Errorf("Telefon_1 = %q, want the --set value", overrides["Telefon_1"])
	}
	if overrides["Ort"] != "Bern" {
		t.Errorf("Ort = %q, want Bern", overrides["Ort"])
	}
}

func TestLoadOverrides_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	if err := os.WriteFile(path, []byte(`not json`), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newOverridesCmd()
	if err := cmd.Flags().Parse([]string{"--overrides", path}); err != nil {
		t.Fatal(err)
	}

	if _, err := loadOverrides(cmd); err == nil {
		t.Error("expected error for invalid overrides file")
	}
}
