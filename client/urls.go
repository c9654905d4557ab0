package client

import packageurl "github.com/package-url/packageurl-go"

// URLBuilder constructs the public URLs of a plugin in one repository.
type URLBuilder interface {
	Browse(pluginID, version string) string
	Download(pluginID, version string) string
	Source(pluginID, version string) string
	PURL(pluginID, version string) string
}

// BaseURLs provides a default URLBuilder implementation.
type BaseURLs struct {
	BrowseFn   func(pluginID, version string) string
	DownloadFn func(pluginID, version string) string
	SourceFn   func(pluginID, version string) string
	PURLFn     func(pluginID, version string) string
}

func (b *BaseURLs) Browse(pluginID, version string) string {
	if b.BrowseFn != nil {
		return b.BrowseFn(pluginID, version)
	}
	return ""
}

func (b *BaseURLs) Download(pluginID, version string) string {
	if b.DownloadFn != nil {
		return b.DownloadFn(pluginID, version)
	}
	return ""
}

func (b *BaseURLs) Source(pluginID, version string) string {
	if b.SourceFn != nil {
		return b.SourceFn(pluginID, version)
	}
	return ""
}

// PURL defaults to a generic package URL.
func (b *BaseURLs) PURL(pluginID, version string) string {
	if b.PURLFn != nil {
		return b.PURLFn(pluginID, version)
	}
	return packageurl.NewPackageURL(packageurl.TypeGeneric, "", pluginID, version, nil, "").ToString()
}

// BuildURLs returns a map of all non-empty URLs for a plugin.
// Keys are "browse", "download", "source", and "purl".
func BuildURLs(urls URLBuilder, pluginID, version string) map[string]string {
	result := make(map[string]string)
	if v := urls.Browse(pluginID, version); v != "" {
		result["browse"] = v
	}
	if v := urls.Download(pluginID, version); v != "" {
		result["download"] = v
	}
	if v := urls.Source(pluginID, version); v != "" {
		result["source"] = v
	}
	if v := urls.PURL(pluginID, version); v != "" {
		result["purl"] = v
	}
	return result
}
