// Package logging configures slog for titlesearch: JSON records to a
// size-rotated file under ~/.titlesearch/logs, optionally mirrored to stderr.
//
// The stdio MCP transport owns stdout, so SetupStdio never writes to the
// terminal.
package logging
