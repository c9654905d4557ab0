package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/git-pkgs/pluginverifier/version"
)

func artifact(id, v, since, until string, modules ...string) *PluginArtifact {
	r, err := version.ParseRange(since, until)
	if err != nil {
		panic(err)
	}
	return &PluginArtifact{Identity: Identity{
		PluginID:       id,
		Version:        v,
		Compatibility:  r,
		DefinedModules: modules,
	}}
}

func fixture() *ListRepository {
	return NewListRepository("Fixture", []PluginInfo{
		artifact("a", "1.0", "IU-200.1", "IU-210.1"),
		artifact("a", "2.0", "IU-211.1", ""),
		artifact("a", "1.5", "IU-200.1", ""),
		artifact("b", "0.9", "", "IU-199.9", "com.example.b"),
		artifact("c", "3.0", "IU-200.1", "", "com.example.b"),
	})
}

func names(plugins []PluginInfo) []string {
	out := make([]string, len(plugins))
	for i, p := range plugins {
		out[i] = p.PresentableName()
	}
	return out
}

func TestListRepository(t *testing.T) {
	ctx := context.Background()
	repo := fixture()
	host := version.MustParse("IU-205.5")

	last, err := repo.LastCompatiblePlugins(ctx, host)
	if err != nil {
		t.Fatal(err)
	}
	if got := names(last); len(got) != 2 || got[0] != "a:1.5" || got[1] != "c:3.0" {
		t.Errorf("LastCompatiblePlugins = %v, want [a:1.5 c:3.0]", got)
	}

	p, _ := repo.LastCompatibleVersionOfPlugin(ctx, version.MustParse("IU-212.1"), "a")
	if p == nil || p.PresentableName() != "a:2.0" {
		t.Errorf("LastCompatibleVersionOfPlugin(a) = %v, want a:2.0", p)
	}

	p, _ = repo.LastCompatibleVersionOfPlugin(ctx, host, "b")
	if p != nil {
		t.Errorf("LastCompatibleVersionOfPlugin(b) = %v, want nil", p)
	}

	all, _ := repo.AllVersionsOfPlugin(ctx, "a")
	if len(all) != 3 {
		t.Errorf("AllVersionsOfPlugin(a) = %v, want 3 builds", names(all))
	}

	declaring, _ := repo.PluginsDeclaringModule(ctx, "com.example.b", nil)
	if len(declaring) != 2 {
		t.Errorf("PluginsDeclaringModule(nil host) = %v, want 2", names(declaring))
	}
	declaring, _ = repo.PluginsDeclaringModule(ctx, "com.example.b", host)
	if got := names(declaring); len(got) != 1 || got[0] != "c:3.0" {
		t.Errorf("PluginsDeclaringModule(host) = %v, want [c:3.0]", got)
	}

	exact, _ := repo.Plugin(ctx, "a", "1.0")
	if exact == nil || exact.PresentableName() != "a:1.0" {
		t.Errorf("Plugin(a, 1.0) = %v", exact)
	}
	missing, _ := repo.Plugin(ctx, "a", "9.9")
	if missing != nil {
		t.Errorf("Plugin(a, 9.9) = %v, want nil", missing)
	}
}

func TestEmptyRepository(t *testing.T) {
	ctx := context.Background()
	if EmptyRepository.PresentableName() != "Empty repository" {
		t.Errorf("PresentableName() = %q", EmptyRepository.PresentableName())
	}
	all, err := EmptyRepository.AllVersionsOfPlugin(ctx, "a")
	if err != nil || len(all) != 0 {
		t.Errorf("AllVersionsOfPlugin = %v, %v", all, err)
	}
}

func TestBundledRepository(t *testing.T) {
	host := &Host{
		Version: version.MustParse("IU-211.7628"),
		Plugins: []*BundledPlugin{
			{Identity: Identity{PluginID: "com.intellij.java", Version: "211.7628", DefinedModules: []string{"com.intellij.modules.java"}}},
			{Identity: Identity{PluginID: "Git4Idea", Version: "211.7628"}},
		},
	}
	repo := NewBundledRepository(host)

	if repo.PresentableName() != "Bundled plugins of IU-211.7628" {
		t.Errorf("PresentableName() = %q", repo.PresentableName())
	}

	p, ok := host.FindByModule("com.intellij.modules.java")
	if !ok || p.PluginID != "com.intellij.java" {
		t.Errorf("FindByModule = %v, %v", p, ok)
	}
	if _, ok := host.FindByID("missing"); ok {
		t.Error("FindByID(missing) should fail")
	}

	plugin, _ := repo.Plugin(context.Background(), "Git4Idea", "211.7628")
	if plugin == nil || plugin.PresentableName() != "Git4Idea 211.7628" {
		t.Errorf("Plugin(Git4Idea) = %v", plugin)
	}
}

func TestPluginKeys(t *testing.T) {
	host := version.MustParse("IU-211.1")
	a := &PluginArtifact{Identity: Identity{PluginID: "x", Version: "1.0"}, UpdateID: 1}
	b := &PluginArtifact{Identity: Identity{PluginID: "x", Version: "1.0"}, UpdateID: 2}
	if a.Key() != b.Key() {
		t.Errorf("artifact keys differ: %q vs %q", a.Key(), b.Key())
	}

	b1 := &BundledPlugin{Identity: Identity{PluginID: "x", Version: "1.0"}, HostVersion: host}
	b2 := &BundledPlugin{Identity: Identity{PluginID: "x", Version: "1.0"}, HostVersion: version.MustParse("IU-212.1")}
	if b1.Key() == b2.Key() {
		t.Error("bundled keys should include the host version")
	}

	local := &LocalPlugin{Identity: Identity{PluginID: "x", Version: "1.0"}, Path: "/tmp/x.jar"}
	if local.PresentableName() != "x 1.0" {
		t.Errorf("local PresentableName() = %q", local.PresentableName())
	}
}

func TestBundledPluginIsNotSerializable(t *testing.T) {
	p := &BundledPlugin{Identity: Identity{PluginID: "x", Version: "1.0"}}
	_, err := json.Marshal(p)
	if !errors.Is(err, ErrNotSerializable) {
		t.Errorf("json.Marshal error = %v, want ErrNotSerializable", err)
	}

	if _, err := json.Marshal(&LocalPlugin{Identity: Identity{PluginID: "x"}}); err != nil {
		t.Errorf("local plugin should marshal: %v", err)
	}
}

func TestLatestKeepsFirstOnTies(t *testing.T) {
	first := artifact("a", "1.0", "", "")
	second := artifact("a", "1.0", "", "")
	if got := Latest([]PluginInfo{first, second}); got != PluginInfo(first) {
		t.Error("Latest should keep the first of equal versions")
	}
	if Latest(nil) != nil {
		t.Error("Latest(nil) should be nil")
	}
}

func TestPresentableSinceUntil(t *testing.T) {
	tests := []struct {
		since, until, want string
	}{
		{"IU-201.1", "IU-203.1", "IU-201.1 - IU-203.1"},
		{"IU-201.1", "", "IU-201.1+"},
		{"", "IU-203.1", "1.0 - IU-203.1"},
		{"", "", "all"},
	}
	for _, tt := range tests {
		p := artifact("a", "1", tt.since, tt.until)
		if got := p.PresentableSinceUntil(); got != tt.want {
			t.Errorf("PresentableSinceUntil(%q, %q) = %q, want %q", tt.since, tt.until, got, tt.want)
		}
	}
}

func TestParseBounds(t *testing.T) {
	r, err := ParseBounds("0.0", "")
	if err != nil {
		t.Fatal(err)
	}
	if r.Since != nil || r.Until != nil {
		t.Errorf("ParseBounds(0.0, \"\") = %v, want open range", r)
	}

	r, err = ParseBounds("223.1", "241.*")
	if err != nil {
		t.Fatal(err)
	}
	if !r.Contains(version.MustParse("241.18034.62")) {
		t.Error("241.* should contain 241.18034.62")
	}
	if r.Contains(version.MustParse("242.1")) {
		t.Error("241.* should not contain 242.1")
	}

	if _, err := ParseBounds("abc", ""); err == nil {
		t.Error("expected error for malformed bound")
	}
}

func TestParseBoundsWildcards(t *testing.T) {
	tests := []struct {
		until string
		v     string
		want  bool
	}{
		{"191.*", "191.5", true},
		{"191.*", "191.99999.1", true},
		{"191.*", "192.0", false},
		{"IU-203.*", "IU-203.7717", true},
		{"IU-203.*", "IU-204.1", false},
		{"*.*", "999.1", true},
	}

	for _, tt := range tests {
		r, err := ParseBounds("", tt.until)
		if err != nil {
			t.Fatalf("ParseBounds(\"\", %q) failed: %v", tt.until, err)
		}
		if got := r.Contains(version.MustParse(tt.v)); got != tt.want {
			t.Errorf("%s contains %s = %v, want %v", r, tt.v, got, tt.want)
		}
	}
}

func TestBulkLastCompatible(t *testing.T) {
	got := BulkLastCompatible(context.Background(), fixture(), version.MustParse("IU-212.1"), []string{"a", "b", "unknown"})
	if len(got) != 1 {
		t.Fatalf("BulkLastCompatible = %v, want only a", got)
	}
	if got["a"].PresentableName() != "a:2.0" {
		t.Errorf("a = %s, want a:2.0", got["a"].PresentableName())
	}
}
