// Package appfs exposes embedded assets: database migrations and email templates.
package appfs

import "embed"

// all: keeps the underscore-prefixed base templates in the embedded tree.
//
//go:embed migrations all:templates
var FS embed.FS
