package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func jsonOpts() *runOptions {
	return &runOptions{output: "json", minSeverity: "info", concurrency: 2}
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	defer cmd.SetOut(nil)
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

func decode(t *testing.T, out string) map[string]interface{} {
	t.Helper()
	var res map[string]interface{}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	return res
}

func TestAnalyzeCmd_RunE(t *testing.T) {
	analyzeOpts = jsonOpts()
	previous = ""
	out, err := run(t, analyzeCmd, "testdata/source.mpd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := decode(t, out)
	if res["success"] != true {
		t.Errorf("expected success, got %v", res["success"])
	}
	if res["name"] != "source.mpd" {
		t.Errorf("unexpected name %v", res["name"])
	}
}

func TestAnalyzeCmd_Previous(t *testing.T) {
	analyzeOpts = jsonOpts()
	previous = "testdata/source.mpd"
	defer func() { previous = "" }()

	out, err := run(t, analyzeCmd, "testdata/ssai.mpd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comparison, ok := decode(t, out)["comparison"].(map[string]interface{})
	if !ok {
		t.Fatal("comparison missing")
	}
	added, _ := comparison["periodsAdded"].([]interface{})
	if len(added) != 1 || added[0] != "ad-break-1" {
		t.Errorf("unexpected periodsAdded %v", comparison["periodsAdded"])
	}
}

func TestAnalyzeCmd_Table(t *testing.T) {
	analyzeOpts = &runOptions{output: "table", minSeverity: "info", concurrency: 1, maxWidth: 60}
	out, err := run(t, analyzeCmd, "testdata/source.mpd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "source.mpd") {
		t.Errorf("table output missing manifest name:\n%s", out)
	}
}

func TestAnalyzeCmd_PDF(t *testing.T) {
	analyzeOpts = jsonOpts()
	analyzeOpts.pdf = filepath.Join(t.TempDir(), "report.pdf")
	if _, err := run(t, analyzeCmd, "testdata/source.mpd"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(analyzeOpts.pdf)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("empty PDF report")
	}
}

func TestAnalyzeCmd_RunE_Error(t *testing.T) {
	tests := []struct {
		name string
		opts *runOptions
		arg  string
	}{
		{"missing file", jsonOpts(), "testdata/nonexistent.mpd"},
		{"not a manifest", jsonOpts(), "testdata/broken.mpd"},
		{"bad output", &runOptions{output: "xml", minSeverity: "info"}, "testdata/source.mpd"},
		{"bad severity", &runOptions{output: "json", minSeverity: "urgent"}, "testdata/source.mpd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzeOpts = tt.opts
			if _, err := run(t, analyzeCmd, tt.arg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateCmd_RunE(t *testing.T) {
	validateOpts = jsonOpts()
	out, err := run(t, validateCmd, "testdata/source.mpd", "testdata/ssai.mpd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := decode(t, out)
	if res["success"] != true {
		t.Errorf("expected success, got %v", res["success"])
	}
	if _, ok := res["enhanced"].(map[string]interface{}); !ok {
		t.Error("enhanced report missing")
	}
}

func TestValidateCmd_MissingSSAI(t *testing.T) {
	validateOpts = jsonOpts()
	if _, err := run(t, validateCmd, "testdata/source.mpd", "testdata/nonexistent.mpd"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSegmentsCmd_RunE(t *testing.T) {
	segmentsOpts = jsonOpts()
	downloadsPath = "testdata/downloads.json"
	defer func() { downloadsPath = "" }()

	out, err := run(t, segmentsCmd, "testdata/live.mpd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	extra, ok := decode(t, out)["extra"].(map[string]interface{})
	if !ok {
		t.Fatal("extra missing")
	}
	if extra["totalSegments"] != float64(6) {
		t.Errorf("unexpected totalSegments %v", extra["totalSegments"])
	}
	if extra["violatingSegments"] != float64(1) {
		t.Errorf("unexpected violatingSegments %v", extra["violatingSegments"])
	}
}

func TestSegmentsCmd_BadDownloads(t *testing.T) {
	segmentsOpts = jsonOpts()
	downloadsPath = "testdata/nonexistent.json"
	defer func() { downloadsPath = "" }()

	if _, err := run(t, segmentsCmd, "testdata/live.mpd"); err == nil {
		t.Fatal("expected error")
	}
}

func TestReplayCmd_RunE(t *testing.T) {
	replayOpts = &runOptions{output: "ndjson", minSeverity: "info", concurrency: 2}
	if _, err := run(t, replayCmd, "testdata/captures"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReplayCmd_NotADirectory(t *testing.T) {
	replayOpts = jsonOpts()
	if _, err := run(t, replayCmd, "testdata/missing"); err == nil {
		t.Fatal("expected error")
	}
}
