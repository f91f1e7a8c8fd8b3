// Package volume manages named volumes backed by local directories and
// parses the CLI volume mount syntax.
package volume
