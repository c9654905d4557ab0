package pluginverifier_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/git-pkgs/pluginverifier"
	_ "github.com/git-pkgs/pluginverifier/all"
	"github.com/git-pkgs/pluginverifier/version"
)

func largeList(n int) string {
	var b strings.Builder
	b.WriteString("<plugins>\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `  <plugin id="org.example.p%d" url="p%d-%d.zip" version="1.%d"><idea-version since-build="2%02d.1"/></plugin>`+"\n",
			i%100, i%100, i, i, i%40)
	}
	b.WriteString("</plugins>")
	return b.String()
}

func BenchmarkNew(b *testing.B) {
	kinds := []string{"marketplace", "maven"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pluginverifier.New(kinds[i%len(kinds)], "", nil)
	}
}

func BenchmarkSupportedKinds(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = pluginverifier.SupportedKinds()
	}
}

func BenchmarkParsePURL(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = pluginverifier.ParsePURL("pkg:jetbrains/org.jetbrains.kotlin@241.14494.240?repository_kind=marketplace")
	}
}

func BenchmarkParseVersion(b *testing.B) {
	inputs := []string{"IU-241.15989.150", "233.11799", "RS-241.1", "IC-232.10300.40"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = version.Parse(inputs[i%len(inputs)])
	}
}

func BenchmarkLastCompatible_Custom(b *testing.B) {
	body := largeList(2000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	repo, _ := pluginverifier.New("custom", server.URL+"/updatePlugins.xml", pluginverifier.DefaultClient())
	host := version.MustParse("IU-241.1")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pluginverifier.LastCompatible(ctx, repo, host, fmt.Sprintf("org.example.p%d", i%100))
	}
}

func BenchmarkBulkLastCompatible_Parallel(b *testing.B) {
	body := largeList(500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	repo, _ := pluginverifier.New("custom", server.URL+"/updatePlugins.xml", pluginverifier.DefaultClient())
	host := version.MustParse("IU-241.1")
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = fmt.Sprintf("org.example.p%d", i)
	}
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = pluginverifier.BulkLastCompatibleWithConcurrency(ctx, repo, host, ids, 8)
		}
	})
}
