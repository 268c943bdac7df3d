// Package scripts embeds the script rules bundled with draftlint. Each
// top-level *.risor file is one rule whose id is the file's base name.
package scripts

import "embed"

// FS holds the bundled rules.
//
//go:embed *.risor
var FS embed.FS
