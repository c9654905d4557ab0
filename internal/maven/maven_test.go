package maven

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/version"
)

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		input      string
		groupID    string
		artifactID string
		version    string
	}{
		{"com.jetbrains.plugins:org.example", "com.jetbrains.plugins", "org.example", ""},
		{"com.jetbrains.intellij.idea:ideaIC:2023.1", "com.jetbrains.intellij.idea", "ideaIC", "2023.1"},
		{"invalid", "", "", ""},
	}

	for _, tt := range tests {
		g, a, v := ParseCoordinates(tt.input)
		if g != tt.groupID || a != tt.artifactID || v != tt.version {
			t.Errorf("ParseCoordinates(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tt.input, g, a, v, tt.groupID, tt.artifactID, tt.version)
		}
	}
}

const pluginMetadata = `<?xml version="1.0" encoding="UTF-8"?>
<metadata>
  <groupId>com.jetbrains.plugins</groupId>
  <artifactId>org.example.tool</artifactId>
  <versioning>
    <latest>1.10.0</latest>
    <versions>
      <version>1.2.0</version>
      <version>1.10.0</version>
      <version>1.9.0</version>
    </versions>
  </versioning>
</metadata>`

func pluginPOM(v, since, until string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<project>
  <parent>
    <groupId>com.jetbrains.plugins</groupId>
    <artifactId>parent</artifactId>
    <version>1</version>
  </parent>
  <artifactId>org.example.tool</artifactId>
  <version>` + v + `</version>
  <name>Tool</name>
  <properties>
    <since-build>` + since + `</since-build>
    <until-build>` + until + `</until-build>
  </properties>
</project>`
}

const parentPOM = `<?xml version="1.0" encoding="UTF-8"?>
<project>
  <groupId>com.jetbrains.plugins</groupId>
  <artifactId>parent</artifactId>
  <version>1</version>
  <organization><name>Example Corp</name></organization>
  <scm><url>https://github.com/example/tool</url></scm>
</project>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	base := "/com/jetbrains/plugins/org.example.tool"
	mux := http.NewServeMux()
	mux.HandleFunc(base+"/maven-metadata.xml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pluginMetadata))
	})
	mux.HandleFunc(base+"/1.2.0/org.example.tool-1.2.0.pom", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pluginPOM("1.2.0", "201.1", "211.*")))
	})
	mux.HandleFunc(base+"/1.9.0/org.example.tool-1.9.0.pom", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pluginPOM("1.9.0", "212.1", "222.*")))
	})
	mux.HandleFunc(base+"/1.10.0/org.example.tool-1.10.0.pom", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pluginPOM("1.10.0", "231.1", "")))
	})
	mux.HandleFunc("/com/jetbrains/plugins/parent/1/parent-1.pom", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(parentPOM))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAllVersionsOfPlugin(t *testing.T) {
	server := newTestServer(t)
	repo := New(server.URL, core.DefaultClient())

	all, err := repo.AllVersionsOfPlugin(context.Background(), "org.example.tool")
	if err != nil {
		t.Fatalf("AllVersionsOfPlugin failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d versions, want 3", len(all))
	}

	a := all[0].(*core.PluginArtifact)
	if a.Vendor != "Example Corp" {
		t.Errorf("Vendor = %q, want inherited organization", a.Vendor)
	}
	if a.SourceCodeURL != "https://github.com/example/tool" {
		t.Errorf("SourceCodeURL = %q", a.SourceCodeURL)
	}
	want := server.URL + "/com/jetbrains/plugins/org.example.tool/1.2.0/org.example.tool-1.2.0.zip"
	if a.DownloadURL != want {
		t.Errorf("DownloadURL = %q, want %q", a.DownloadURL, want)
	}
	if a.PresentableSinceUntil() != "201.1 - 211.2147483647" {
		t.Errorf("PresentableSinceUntil() = %q", a.PresentableSinceUntil())
	}
}

func TestLastCompatibleVersionOfPlugin(t *testing.T) {
	server := newTestServer(t)
	repo := New(server.URL, core.DefaultClient())
	ctx := context.Background()

	tests := []struct {
		host string
		want string
	}{
		{"233.1", "1.10.0"},
		{"221.5", "1.9.0"},
		{"203.1", "1.2.0"},
	}
	for _, tt := range tests {
		p, err := repo.LastCompatibleVersionOfPlugin(ctx, version.MustParse(tt.host), "org.example.tool")
		if err != nil {
			t.Fatalf("LastCompatibleVersionOfPlugin(%s) failed: %v", tt.host, err)
		}
		if p == nil || p.Info().Version != tt.want {
			t.Errorf("LastCompatibleVersionOfPlugin(%s) = %v, want %s", tt.host, p, tt.want)
		}
	}

	p, err := repo.LastCompatibleVersionOfPlugin(ctx, version.MustParse("193.1"), "org.example.tool")
	if err != nil || p != nil {
		t.Errorf("LastCompatibleVersionOfPlugin(193.1) = %v, %v; want nil", p, err)
	}
}

func TestUnknownPlugin(t *testing.T) {
	server := newTestServer(t)
	repo := New(server.URL, core.DefaultClient())
	ctx := context.Background()

	all, err := repo.AllVersionsOfPlugin(ctx, "org.example.unknown")
	if err != nil || len(all) != 0 {
		t.Errorf("AllVersionsOfPlugin = %v, %v", all, err)
	}
	p, err := repo.Plugin(ctx, "org.example.tool", "9.9.9")
	if err != nil || p != nil {
		t.Errorf("Plugin(9.9.9) = %v, %v", p, err)
	}
	p, err = repo.Plugin(ctx, "org.example.tool", "1.9.0")
	if err != nil || p == nil {
		t.Errorf("Plugin(1.9.0) = %v, %v", p, err)
	}
}

func TestSortVersions(t *testing.T) {
	versions := []string{"1.2.0", "1.10.0", "1.9.0", "2023.1", "1.10.0-eap"}
	sortVersions(versions)
	want := []string{"2023.1", "1.10.0", "1.10.0-eap", "1.9.0", "1.2.0"}
	for i := range want {
		if versions[i] != want[i] {
			t.Errorf("sortVersions = %v, want %v", versions, want)
			break
		}
	}
}

func TestURLBuilder(t *testing.T) {
	repo := New("https://plugins.jetbrains.com/maven", nil)
	urls := repo.URLs()

	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{"browse", func() string { return urls.Browse("com.jetbrains.intellij.idea:ideaIC", "2023.1") }, "https://search.maven.org/artifact/com.jetbrains.intellij.idea/ideaIC/2023.1/jar"},
		{"download", func() string { return urls.Download("org.example", "1.0") }, "https://plugins.jetbrains.com/maven/com/jetbrains/plugins/org.example/1.0/org.example-1.0.zip"},
		{"source", func() string { return urls.Source("org.example", "1.0") }, "https://plugins.jetbrains.com/maven/com/jetbrains/plugins/org.example/1.0/org.example-1.0-sources.jar"},
		{"purl", func() string { return urls.PURL("org.example", "1.0") }, "pkg:maven/com.jetbrains.plugins/org.example@1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPresentableName(t *testing.T) {
	repo := New("", nil)
	if repo.PresentableName() != "Maven "+DefaultURL {
		t.Errorf("PresentableName() = %q", repo.PresentableName())
	}
}
