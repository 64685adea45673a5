// Copyright © 2021 The Lust authors

// Package docs embeds the lust language reference for use by the CLI.
package docs

import _ "embed"

//go:embed lang.md
var LangGuide string
