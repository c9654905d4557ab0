package ide

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	mavenRepositoryMacro = "$MAVEN_REPOSITORY$"
	projectDirMacro      = "$PROJECT_DIR$"
)

type libraryTable struct {
	Libraries []struct {
		Name  string `xml:"name,attr"`
		Roots []struct {
			URL string `xml:"url,attr"`
		} `xml:"CLASSES>root"`
	} `xml:"library"`
}

// RepositoryLibraryJars lists the class jars of every library declared in
// <checkout>/.idea/libraries. Macros $MAVEN_REPOSITORY$ and $PROJECT_DIR$
// expand to mavenRepo and checkout. Jars that do not exist are skipped.
func RepositoryLibraryJars(checkout, mavenRepo string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(checkout, ".idea", "libraries", "*.xml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	seen := make(map[string]bool)
	var jars []string
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		var table libraryTable
		if err := xml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(file), err)
		}
		for _, lib := range table.Libraries {
			for _, root := range lib.Roots {
				path, ok := jarPath(root.URL, checkout, mavenRepo)
				if !ok || seen[path] {
					continue
				}
				if _, err := os.Stat(path); err != nil {
					continue
				}
				seen[path] = true
				jars = append(jars, path)
			}
		}
	}
	return jars, nil
}

// jarPath turns "jar://$MAVEN_REPOSITORY$/a/b.jar!/" into a file path.
func jarPath(url, checkout, mavenRepo string) (string, bool) {
	rest, ok := strings.CutPrefix(url, "jar://")
	if !ok {
		return "", false
	}
	rest, _, _ = strings.Cut(rest, "!/")
	switch {
	case strings.HasPrefix(rest, mavenRepositoryMacro):
		if mavenRepo == "" {
			return "", false
		}
		rest = mavenRepo + strings.TrimPrefix(rest, mavenRepositoryMacro)
	case strings.HasPrefix(rest, projectDirMacro):
		rest = checkout + strings.TrimPrefix(rest, projectDirMacro)
	}
	if strings.Contains(rest, "$") {
		return "", false
	}
	return filepath.Clean(filepath.FromSlash(rest)), true
}
