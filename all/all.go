// Package all imports all supported repository implementations.
//
// Import this package for its side effects to register every repository kind:
//
//	import (
//		"github.com/git-pkgs/pluginverifier"
//		_ "github.com/git-pkgs/pluginverifier/all"
//	)
//
//	// Now all repository kinds are available
//	kinds := pluginverifier.SupportedKinds()
//	// ["custom", "marketplace", "maven"]
package all

import (
	_ "github.com/git-pkgs/pluginverifier/internal/custom"
	_ "github.com/git-pkgs/pluginverifier/internal/marketplace"
	_ "github.com/git-pkgs/pluginverifier/internal/maven"
)
