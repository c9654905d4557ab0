package core

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/git-pkgs/pluginverifier/version"
)

const defaultConcurrency = 15

// ParseBounds parses compatibility bounds as repositories publish them.
// Empty and "0.0" bounds are open, and a "*" component matches any number.
func ParseBounds(since, until string) (version.Range, error) {
	return version.ParseRange(normalizeBound(since), normalizeBound(until))
}

// ParseBound parses a single bound leniently. Absent and malformed bounds
// are nil.
func ParseBound(s string) version.Version {
	r, err := version.ParseRange(normalizeBound(s), "")
	if err != nil {
		return nil
	}
	return r.Since
}

func normalizeBound(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "0.0" {
		return ""
	}
	if !strings.Contains(s, "*") {
		return s
	}
	parts := strings.Split(s, ".")
	for i, p := range parts {
		if p == "*" {
			parts[i] = strconv.Itoa(math.MaxInt32)
		}
	}
	return strings.Join(parts, ".")
}

// ComparePlugins orders plugins by their version strings.
func ComparePlugins(a, b PluginInfo) int {
	return version.CompareStrings(a.Info().Version, b.Info().Version)
}

// Latest returns the plugin with the greatest version. Ties keep the
// earliest element. Returns nil if plugins is empty.
func Latest(plugins []PluginInfo) PluginInfo {
	var best PluginInfo
	for _, p := range plugins {
		if best == nil || ComparePlugins(p, best) > 0 {
			best = p
		}
	}
	return best
}

// Compatible returns the plugins compatible with host, in order.
func Compatible(plugins []PluginInfo, host version.Version) []PluginInfo {
	var out []PluginInfo
	for _, p := range plugins {
		if p.Info().IsCompatibleWith(host) {
			out = append(out, p)
		}
	}
	return out
}

// LatestPerPlugin groups plugins by id and keeps the latest build of each,
// ordered by first appearance of the id.
func LatestPerPlugin(plugins []PluginInfo) []PluginInfo {
	index := make(map[string]int)
	var out []PluginInfo
	for _, p := range plugins {
		id := p.Info().PluginID
		i, ok := index[id]
		if !ok {
			index[id] = len(out)
			out = append(out, p)
			continue
		}
		if ComparePlugins(p, out[i]) > 0 {
			out[i] = p
		}
	}
	return out
}

// WithID returns the plugins whose id is id.
func WithID(plugins []PluginInfo, id string) []PluginInfo {
	var out []PluginInfo
	for _, p := range plugins {
		if p.Info().PluginID == id {
			out = append(out, p)
		}
	}
	return out
}

// DeclaringModule returns the plugins declaring module, compatible with
// host when host is not nil.
func DeclaringModule(plugins []PluginInfo, module string, host version.Version) []PluginInfo {
	var out []PluginInfo
	for _, p := range plugins {
		info := p.Info()
		if !info.DefinesModule(module) {
			continue
		}
		if host != nil && !info.IsCompatibleWith(host) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// BulkLastCompatible looks up the last compatible build of every id in
// parallel. Ids that fail or have no compatible build are omitted.
// Returns a map of plugin id to PluginInfo.
func BulkLastCompatible(ctx context.Context, repo Repository, host version.Version, ids []string) map[string]PluginInfo {
	return BulkLastCompatibleWithConcurrency(ctx, repo, host, ids, defaultConcurrency)
}

// BulkLastCompatibleWithConcurrency is BulkLastCompatible with a custom
// concurrency limit.
func BulkLastCompatibleWithConcurrency(ctx context.Context, repo Repository, host version.Version, ids []string, concurrency int) map[string]PluginInfo {
	results := make(map[string]PluginInfo)
	var mu sync.Mutex
	sem := make(chan struct{}, max(concurrency, 1))
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			plugin, err := repo.LastCompatibleVersionOfPlugin(ctx, host, id)
			if err == nil && plugin != nil {
				mu.Lock()
				results[id] = plugin
				mu.Unlock()
			}
		}(id)
	}

	wg.Wait()
	return results
}
