// Package configs embeds the configuration template written by
// `titlesearch init`.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (internal/config NewConfig)
//  2. User config (~/.config/titlesearch/config.yaml)
//  3. Project config (.titlesearch.yaml or --config)
//  4. .env file
//  5. Environment variables (TITLESEARCH_*)
package configs

import _ "embed"

// ConfigTemplate is the commented project configuration template.
//
//go:embed config.example.yaml
var ConfigTemplate string
