package core

import (
	"errors"
	"fmt"

	"github.com/git-pkgs/pluginverifier/client"
)

// ErrNotFound is returned when a plugin or version is not found.
var ErrNotFound = client.ErrNotFound

// ErrNotSerializable is returned when marshalling a plugin that only has
// meaning inside the current process.
var ErrNotSerializable = errors.New("not serializable")

// NotFoundError wraps ErrNotFound with additional context.
type NotFoundError struct {
	Repository string
	PluginID   string
	Version    string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("%s: plugin %s version %s not found", e.Repository, e.PluginID, e.Version)
	}
	return fmt.Sprintf("%s: plugin %s not found", e.Repository, e.PluginID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}
