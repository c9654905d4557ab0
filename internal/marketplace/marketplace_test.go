package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/version"
)

type fakeMarketplace struct {
	metaRequests atomic.Int32
}

func (f *fakeMarketplace) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	write := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	meta := map[string]updateMetadata{
		"/files/1/10/meta.json": {ID: 10, XMLID: "org.example.a", Name: "A", Version: "1.0", Vendor: "Example", Since: "IU-201.1", Until: "IU-203.*"},
		"/files/1/11/meta.json": {ID: 11, XMLID: "org.example.a", Name: "A", Version: "2.0", Vendor: "Example", Since: "IU-211.1", Until: "0.0", SourceCodeURL: "https://github.com/example/a", Tags: []string{"Tools"}},
		"/files/2/20/meta.json": {ID: 20, XMLID: "org.example.b", Name: "B", Version: "0.1", Since: "", Until: "", SourceCodeURL: "not a url", Modules: []string{"com.example.modules.b"}},
	}

	switch r.URL.Path {
	case "/api/search/compatibleUpdates":
		q := r.URL.Query()
		switch {
		case q.Get("pluginXmlId") == "org.example.a":
			write([]updateBean{{ID: 11, PluginID: 1, PluginXMLID: "org.example.a", Version: "2.0"}})
		case q.Get("pluginXmlId") != "":
			write([]updateBean{})
		case q.Get("module") == "com.example.modules.b":
			write([]updateBean{{ID: 20, PluginID: 2, PluginXMLID: "org.example.b", Version: "0.1"}})
		case q.Get("module") != "":
			write([]updateBean{})
		default:
			write([]updateBean{
				{ID: 11, PluginID: 1, PluginXMLID: "org.example.a", Version: "2.0"},
				{ID: 20, PluginID: 2, PluginXMLID: "org.example.b", Version: "0.1"},
				{ID: 99, PluginID: 9, PluginXMLID: "org.example.gone", Version: "1.0"},
			})
		}
	case "/api/plugins/intellij/org.example.a":
		write(pluginBean{ID: 1, XMLID: "org.example.a", Name: "A"})
	case "/api/plugins/1/updateVersions":
		write([]updateVersion{{ID: 10, Version: "1.0"}, {ID: 11, Version: "2.0"}})
	case "/api/updates/10":
		write(updateBean{ID: 10, PluginID: 1, PluginXMLID: "org.example.a", Version: "1.0"})
	default:
		if m, ok := meta[r.URL.Path]; ok {
			f.metaRequests.Add(1)
			write(m)
			return
		}
		http.NotFound(w, r)
	}
}

func newTestRepository(t *testing.T) (*Repository, *fakeMarketplace) {
	t.Helper()
	fake := &fakeMarketplace{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return New(server.URL, core.DefaultClient()), fake
}

func TestLastCompatibleVersionOfPlugin(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	p, err := repo.LastCompatibleVersionOfPlugin(ctx, version.MustParse("IU-212.1"), "org.example.a")
	if err != nil {
		t.Fatalf("LastCompatibleVersionOfPlugin failed: %v", err)
	}
	if p == nil {
		t.Fatal("expected a plugin")
	}
	a := p.(*core.PluginArtifact)
	if a.PresentableName() != "org.example.a:2.0" {
		t.Errorf("PresentableName() = %q", a.PresentableName())
	}
	if a.DownloadURL != repo.baseURL+"/plugin/download?noStatistic=true&updateId=11" {
		t.Errorf("DownloadURL = %q", a.DownloadURL)
	}
	if a.BrowserURL != repo.baseURL+"/plugin/1" {
		t.Errorf("BrowserURL = %q", a.BrowserURL)
	}
	if a.SourceCodeURL != "https://github.com/example/a" {
		t.Errorf("SourceCodeURL = %q", a.SourceCodeURL)
	}
	if a.Compatibility.Until != nil {
		t.Errorf("until 0.0 should be absent, got %v", a.Compatibility.Until)
	}
	if a.PresentableSinceUntil() != "IU-211.1+" {
		t.Errorf("PresentableSinceUntil() = %q", a.PresentableSinceUntil())
	}

	p, err = repo.LastCompatibleVersionOfPlugin(ctx, version.MustParse("IU-212.1"), "org.example.unknown")
	if err != nil || p != nil {
		t.Errorf("unknown plugin = %v, %v; want nil, nil", p, err)
	}
}

func TestAllVersionsOfPlugin(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	all, err := repo.AllVersionsOfPlugin(ctx, "org.example.a")
	if err != nil {
		t.Fatalf("AllVersionsOfPlugin failed: %v", err)
	}
	if len(all) != 2 || all[0].Info().Version != "1.0" || all[1].Info().Version != "2.0" {
		t.Fatalf("AllVersionsOfPlugin = %v", all)
	}
	if !all[0].Info().IsCompatibleWith(version.MustParse("IU-203.7717")) {
		t.Error("1.0 should be compatible with IU-203.7717 via the 203.* bound")
	}

	none, err := repo.AllVersionsOfPlugin(ctx, "org.example.unknown")
	if err != nil || len(none) != 0 {
		t.Errorf("unknown plugin = %v, %v", none, err)
	}

	exact, err := repo.Plugin(ctx, "org.example.a", "1.0")
	if err != nil || exact == nil || exact.Info().Version != "1.0" {
		t.Errorf("Plugin(a, 1.0) = %v, %v", exact, err)
	}
}

func TestLastCompatiblePluginsDropsMissingMetadata(t *testing.T) {
	repo, _ := newTestRepository(t)

	plugins, err := repo.LastCompatiblePlugins(context.Background(), version.MustParse("IU-212.1"))
	if err != nil {
		t.Fatalf("LastCompatiblePlugins failed: %v", err)
	}
	if len(plugins) != 2 {
		t.Fatalf("got %d plugins, want 2", len(plugins))
	}
	b := plugins[1].(*core.PluginArtifact)
	if b.SourceCodeURL != "" {
		t.Errorf("malformed source URL should be dropped, got %q", b.SourceCodeURL)
	}
}

func TestPluginsDeclaringModule(t *testing.T) {
	repo, _ := newTestRepository(t)

	plugins, err := repo.PluginsDeclaringModule(context.Background(), "com.example.modules.b", nil)
	if err != nil {
		t.Fatalf("PluginsDeclaringModule failed: %v", err)
	}
	if len(plugins) != 1 || !plugins[0].Info().DefinesModule("com.example.modules.b") {
		t.Errorf("PluginsDeclaringModule = %v", plugins)
	}
}

func TestMetadataCache(t *testing.T) {
	repo, fake := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := repo.PluginByUpdateID(ctx, 10); err != nil {
			t.Fatal(err)
		}
	}
	if n := fake.metaRequests.Load(); n != 1 {
		t.Errorf("metadata requests = %d, want 1", n)
	}

	now = now.Add(MetadataTTL + time.Second)
	if _, err := repo.PluginByUpdateID(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if n := fake.metaRequests.Load(); n != 2 {
		t.Errorf("metadata requests after expiry = %d, want 2", n)
	}
}

func TestPluginByUpdateIDNotFound(t *testing.T) {
	repo, _ := newTestRepository(t)
	p, err := repo.PluginByUpdateID(context.Background(), 12345)
	if err != nil || p != nil {
		t.Errorf("PluginByUpdateID = %v, %v; want nil, nil", p, err)
	}
}

func TestRegistered(t *testing.T) {
	repo, err := core.New("marketplace", "", nil)
	if err != nil {
		t.Fatalf("core.New failed: %v", err)
	}
	if repo.PresentableName() != "Marketplace "+DefaultURL {
		t.Errorf("PresentableName() = %q", repo.PresentableName())
	}
}

func TestURLs(t *testing.T) {
	urls := &URLs{baseURL: DefaultURL}

	if got := urls.Browse("org.example", ""); got != DefaultURL+"/plugin/org.example" {
		t.Errorf("Browse = %q", got)
	}
	if got := urls.Download("org.example", "1.0"); got != DefaultURL+"/plugin/download?pluginId=org.example&version=1.0" {
		t.Errorf("Download = %q", got)
	}
	if got := urls.PURL("org.example", "1.0"); got != "pkg:jetbrains/org.example@1.0" {
		t.Errorf("PURL = %q", got)
	}
}
