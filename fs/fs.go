package appfs

import "embed"

// FS holds the assets shipped inside the binaries.
//
//go:embed all:templates
var FS embed.FS
