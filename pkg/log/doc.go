// Package log provides structured logging for cubo built on zerolog.
//
// Call Init once at process startup, then use WithComponent to derive
// per-package child loggers. Console output is the default; JSON output
// is available for machine consumption.
package log
