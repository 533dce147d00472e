package main

import (
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	defer func() { versionOutput = "plain" }()

	tests := []struct {
		output string
		want   string
	}{
		{"plain", "dev (built: unknown commit: none)"},
		{"json", `"version": "dev"`},
		{"yaml", "version: dev"},
	}
	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			versionOutput = tt.output
			out, err := run(t, versionCmd)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("version output %q does not contain %q", out, tt.want)
			}
		})
	}

	versionOutput = "toml"
	if _, err := run(t, versionCmd); err == nil {
		t.Error("expected error for unsupported output")
	}
}

func TestCompletionCmd(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := run(t, completionCmd, shell)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out, "mpd-scope") {
				t.Error("completion script does not mention the binary")
			}
		})
	}
}
