package core

import (
	"context"
	"errors"
	"testing"
)

func TestParsePURL(t *testing.T) {
	tests := []struct {
		input    string
		wantType string
		wantID   string
		wantVer  string
		wantKind string
		wantErr  bool
	}{
		{"pkg:jetbrains/org.example.plugin", "jetbrains", "org.example.plugin", "", "marketplace", false},
		{"pkg:jetbrains/org.example.plugin@1.2.3", "jetbrains", "org.example.plugin", "1.2.3", "marketplace", false},
		{"pkg:maven/com.jetbrains.intellij.idea/ideaIC@2023.1", "maven", "com.jetbrains.intellij.idea:ideaIC", "2023.1", "maven", false},
		{"pkg:jetbrains/org.example@1.0?repository_kind=custom", "jetbrains", "org.example", "1.0", "custom", false},
		{"pkg:generic/acme/tool@2.0", "generic", "acme/tool", "2.0", "generic", false},

		{"jetbrains/org.example", "", "", "", "", true}, // missing pkg: prefix
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if p.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", p.Type, tt.wantType)
			}
			if got := p.PluginID(); got != tt.wantID {
				t.Errorf("PluginID() = %q, want %q", got, tt.wantID)
			}
			if p.Version != tt.wantVer {
				t.Errorf("Version = %q, want %q", p.Version, tt.wantVer)
			}
			if got := p.RepositoryKind(); got != tt.wantKind {
				t.Errorf("RepositoryKind() = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestPluginPURL(t *testing.T) {
	tests := []struct {
		plugin PluginInfo
		want   string
	}{
		{
			&PluginArtifact{Identity: Identity{PluginID: "org.example.plugin", Version: "1.2.3"}},
			"pkg:jetbrains/org.example.plugin@1.2.3",
		},
		{
			&PluginArtifact{Identity: Identity{PluginID: "com.jetbrains.intellij.idea:ideaIC", Version: "2023.1"}},
			"pkg:maven/com.jetbrains.intellij.idea/ideaIC@2023.1",
		},
	}

	for _, tt := range tests {
		if got := PluginPURL(tt.plugin); got != tt.want {
			t.Errorf("PluginPURL(%s) = %q, want %q", tt.plugin.PresentableName(), got, tt.want)
		}
	}
}

func TestNewFromPURL(t *testing.T) {
	repo := NewListRepository("PURL fixture", []PluginInfo{
		&PluginArtifact{Identity: Identity{PluginID: "org.example", Version: "1.0"}},
	})
	Register("purl-fixture", "mem://fixture", func(baseURL string, _ *Client) Repository {
		return repo
	})

	got, id, v, err := NewFromPURL("pkg:jetbrains/org.example@1.0?repository_kind=purl-fixture", nil)
	if err != nil {
		t.Fatalf("NewFromPURL failed: %v", err)
	}
	if got != Repository(repo) {
		t.Errorf("repository = %v, want fixture", got)
	}
	if id != "org.example" || v != "1.0" {
		t.Errorf("id, version = %q, %q", id, v)
	}

	plugin, err := FetchPluginFromPURL(context.Background(), "pkg:jetbrains/org.example@1.0?repository_kind=purl-fixture", nil)
	if err != nil {
		t.Fatalf("FetchPluginFromPURL failed: %v", err)
	}
	if plugin.PresentableName() != "org.example:1.0" {
		t.Errorf("plugin = %s", plugin.PresentableName())
	}

	_, err = FetchPluginFromPURL(context.Background(), "pkg:jetbrains/org.example@2.0?repository_kind=purl-fixture", nil)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should unwrap to ErrNotFound")
	}
	if nf.Error() != "PURL fixture: plugin org.example version 2.0 not found" {
		t.Errorf("Error() = %q", nf.Error())
	}

	if _, err := FetchPluginFromPURL(context.Background(), "pkg:jetbrains/org.example?repository_kind=purl-fixture", nil); err == nil {
		t.Error("expected error for PURL without version")
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New("no-such-kind", "", nil); err == nil {
		t.Error("expected error for unknown repository kind")
	}
}
