package ide

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-pkgs/pluginverifier/classfile/classfiletest"
	"github.com/git-pkgs/pluginverifier/internal/core"
	"github.com/git-pkgs/pluginverifier/resolver"
	"github.com/git-pkgs/pluginverifier/version"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeJar(t *testing.T, path string, classes ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range classes {
		w, err := zw.Create(name + ".class")
		require.NoError(t, err)
		_, err = w.Write(classfiletest.Simple(name, ""))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func writeClass(t *testing.T, root, name string) {
	t.Helper()
	writeFile(t, filepath.Join(root, filepath.FromSlash(name)+".class"), classfiletest.Simple(name, ""))
}

func describe(t *testing.T, r resolver.Resolver, class string) string {
	t.Helper()
	found, ok := r.ResolveClass(class).(resolver.Found)
	require.Truef(t, ok, "class %s is not found", class)
	return resolver.Describe(found.Origin)
}

func distribution(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build.txt"), []byte("IU-241.15989.150\n"))
	writeJar(t, filepath.Join(dir, "lib", "app.jar"), "com/intellij/App")
	writeJar(t, filepath.Join(dir, "lib", "ant", "lib", "ant.jar"), "org/apache/tools/ant/Task")
	return dir
}

func TestDetectLayout(t *testing.T) {
	community := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(community, ".idea"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(community, "out", "classes", "production"), 0o755))

	ultimate := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ultimate, ".idea"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(ultimate, "community", ".idea"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(ultimate, "out", "production"), 0o755))

	uncompiled := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(uncompiled, ".idea"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(uncompiled, "lib"), 0o755))

	tests := []struct {
		name string
		path string
		want Layout
	}{
		{"distribution", distribution(t), Distribution},
		{"community", community, CompiledCommunity},
		{"ultimate", ultimate, CompiledUltimate},
		{"project without output", uncompiled, Invalid},
		{"empty", t.TempDir(), Invalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLayout(tt.path))
		})
	}
}

func TestDistributionResolver(t *testing.T) {
	ctx := context.Background()
	i, err := Open(distribution(t))
	require.NoError(t, err)
	assert.Equal(t, "IU-241.15989.150", i.Version.String())
	assert.Equal(t, Distribution, i.Layout)

	r, err := i.Resolver(ctx, resolver.Signatures)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	assert.Equal(t, "jar app.jar inside lib directory of IU-241.15989.150", describe(t, r, "com/intellij/App"))
	assert.True(t, r.ContainsClass("org/apache/tools/ant/Task"))
	assert.True(t, r.ContainsPackage("com/intellij"))
}

func TestOpenWithVersionOverride(t *testing.T) {
	dir := t.TempDir()
	writeJar(t, filepath.Join(dir, "lib", "app.jar"), "com/intellij/App")

	_, err := Open(dir)
	var invalid *InvalidIdeError
	require.ErrorAs(t, err, &invalid)

	i, err := Open(dir, WithVersion(version.MustParse("IC-233.1")))
	require.NoError(t, err)
	assert.Equal(t, "IC-233.1", i.String())
}

func TestOpenInvalid(t *testing.T) {
	_, err := CreateResolver(context.Background(), t.TempDir(), resolver.Signatures)
	var invalid *InvalidIdeError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Error(), "neither a distribution nor a compiled checkout")
}

func TestCompiledUltimateResolver(t *testing.T) {
	ctx := context.Background()
	checkout := t.TempDir()
	maven := t.TempDir()

	writeFile(t, filepath.Join(checkout, "community", "build.txt"), []byte("IU-241.1"))
	require.NoError(t, os.MkdirAll(filepath.Join(checkout, "community", ".idea"), 0o755))
	writeJar(t, filepath.Join(checkout, "lib", "tools.jar"), "com/sun/Tools")
	writeJar(t, filepath.Join(checkout, "community", "lib", "trove.jar"), "gnu/trove/THashMap")
	writeJar(t, filepath.Join(maven, "com", "google", "guava", "guava-33.jar"), "com/google/common/Lists")

	writeFile(t, filepath.Join(checkout, ".idea", "libraries", "guava.xml"), []byte(`<component name="libraryTable">
  <library name="guava" type="repository">
    <CLASSES>
      <root url="jar://$MAVEN_REPOSITORY$/com/google/guava/guava-33.jar!/" />
      <root url="jar://$MAVEN_REPOSITORY$/com/google/guava/missing.jar!/" />
    </CLASSES>
    <SOURCES>
      <root url="jar://$MAVEN_REPOSITORY$/com/google/guava/guava-33-sources.jar!/" />
    </SOURCES>
  </library>
</component>`))

	production := filepath.Join(checkout, "out", "classes", "production")
	writeClass(t, filepath.Join(production, "intellij.platform.core"), "com/intellij/openapi/Core")
	writeClass(t, filepath.Join(production, "intellij.java"), "com/intellij/java/Psi")

	i, err := Open(checkout, WithMavenRepository(maven))
	require.NoError(t, err)
	assert.Equal(t, CompiledUltimate, i.Layout)

	r, err := i.Resolver(ctx, resolver.Signatures)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	host := i.Version.String()
	assert.Equal(t, "jar tools.jar inside source lib directory of "+host, describe(t, r, "com/sun/Tools"))
	assert.Equal(t, "jar guava-33.jar inside repository library of "+host, describe(t, r, "com/google/common/Lists"))
	assert.Equal(t, "compiled module intellij.platform.core of "+host, describe(t, r, "com/intellij/openapi/Core"))
	assert.Equal(t, "compiled module intellij.java of "+host, describe(t, r, "com/intellij/java/Psi"))
	assert.Equal(t, "jar trove.jar inside source lib directory of "+host, describe(t, r, "gnu/trove/THashMap"))
}

func TestCompiledCommunityWithoutLib(t *testing.T) {
	checkout := t.TempDir()
	writeFile(t, filepath.Join(checkout, "build.txt"), []byte("241.1"))
	require.NoError(t, os.MkdirAll(filepath.Join(checkout, ".idea"), 0o755))
	writeClass(t, filepath.Join(checkout, "out", "production", "core"), "a/A")

	r, err := CreateResolver(context.Background(), checkout, resolver.Full, WithMavenRepository(""))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	assert.Equal(t, "compiled module core of 241.1", describe(t, r, "a/A"))
}

func TestRepositoryLibraryJars(t *testing.T) {
	checkout := t.TempDir()
	maven := t.TempDir()
	writeJar(t, filepath.Join(maven, "a.jar"), "a/A")
	writeJar(t, filepath.Join(checkout, "tools", "b.jar"), "b/B")

	writeFile(t, filepath.Join(checkout, ".idea", "libraries", "a.xml"), []byte(`<component name="libraryTable">
  <library name="a"><CLASSES><root url="jar://$MAVEN_REPOSITORY$/a.jar!/" /></CLASSES></library>
</component>`))
	writeFile(t, filepath.Join(checkout, ".idea", "libraries", "b.xml"), []byte(`<component name="libraryTable">
  <library name="b"><CLASSES>
    <root url="jar://$PROJECT_DIR$/tools/b.jar!/" />
    <root url="file://$PROJECT_DIR$/classes" />
    <root url="jar://$UNKNOWN$/c.jar!/" />
    <root url="jar://$MAVEN_REPOSITORY$/a.jar!/" />
  </CLASSES></library>
</component>`))

	jars, err := RepositoryLibraryJars(checkout, maven)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(maven, "a.jar"), filepath.Join(checkout, "tools", "b.jar")}, jars)
}

func TestRepositoryLibraryJarsMalformed(t *testing.T) {
	checkout := t.TempDir()
	writeFile(t, filepath.Join(checkout, ".idea", "libraries", "broken.xml"), []byte("<component"))
	_, err := RepositoryLibraryJars(checkout, "")
	assert.ErrorContains(t, err, "broken.xml")
}

func TestHost(t *testing.T) {
	bundled := &core.BundledPlugin{Identity: core.Identity{PluginID: "com.intellij.java", Version: "241.1"}}
	i, err := Open(distribution(t), WithBundledPlugins(bundled))
	require.NoError(t, err)

	host := i.Host()
	assert.Equal(t, "IU-241.15989.150", host.Version.String())
	p, ok := host.FindByID("com.intellij.java")
	require.True(t, ok)
	assert.Same(t, bundled, p)
}
