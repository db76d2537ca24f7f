// Package appfs embeds the static files shipped with the binaries: SQL migrations and email templates.
package appfs

import "embed"

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)

//go:embed migrations/*.sql templates/email/*
var FS embed.FS
