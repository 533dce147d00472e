package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validMPD = `<?xml version="1.0" encoding="UTF-8"?>
<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" type="static" mediaPresentationDuration="PT30S">
  <Period id="1" start="PT0S"/>
</MPD>`

// writeFiles creates a temporary directory with the given files
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file %s: %v", name, err)
		}
	}
	return dir
}

func TestResolverFactory(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"live.mpd":   validMPD,
		"notes.txt":  "not a manifest",
		"ssai/a.mpd": validMPD,
	})

	tests := []struct {
		name     string
		source   string
		wantType string
		wantErr  bool
	}{
		{name: "empty source", source: "", wantErr: true},
		{name: "http url", source: "http://cdn.example.com/live/manifest.mpd", wantType: "*resolver.RemoteResolver"},
		{name: "https url without extension", source: "https://cdn.example.com/live?token=1", wantType: "*resolver.RemoteResolver"},
		{name: "directory", source: filepath.Join(dir, "ssai"), wantType: "*resolver.FolderResolver"},
		{name: "manifest file", source: filepath.Join(dir, "live.mpd"), wantType: "*resolver.LocalResolver"},
		{name: "unsupported file", source: filepath.Join(dir, "notes.txt"), wantErr: true},
		{name: "missing file", source: filepath.Join(dir, "missing.mpd"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ResolverFactory(tt.source, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolverFactory() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSource) {
					t.Errorf("ResolverFactory() error = %v, want ErrInvalidSource", err)
				}
				return
			}
			if got := typeName(r); got != tt.wantType {
				t.Errorf("ResolverFactory() = %s, want %s", got, tt.wantType)
			}
		})
	}
}

func typeName(r SourceResolver) string {
	switch r.(type) {
	case *RemoteResolver:
		return "*resolver.RemoteResolver"
	case *FolderResolver:
		return "*resolver.FolderResolver"
	case *LocalResolver:
		return "*resolver.LocalResolver"
	default:
		return "unknown"
	}
}

func TestValidateManifest(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "valid", content: validMPD},
		{name: "empty", content: "  \n", wantErr: true},
		{name: "malformed", content: `<MPD><Period`, wantErr: true},
		{name: "other root", content: `<VAST version="3.0"/>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateManifest([]byte(tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateManifest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrNotManifest) {
				t.Errorf("validateManifest() error = %v, want ErrNotManifest", err)
			}
		})
	}
}

func TestSourceTypeString(t *testing.T) {
	for st, want := range map[SourceType]string{
		SourceTypeFile:    "file",
		SourceTypeRemote:  "remote",
		SourceTypeFolder:  "folder",
		SourceTypeUnknown: "unknown",
	} {
		if got := st.String(); got != want {
			t.Errorf("SourceType(%d).String() = %s, want %s", st, got, want)
		}
	}
}
