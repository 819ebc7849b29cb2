package web

import (
	"embed"
)

// The dashboard page and its assets, served at / and /static/.
//
//go:embed static/*
var staticFiles embed.FS
