// Package errdefs defines the error taxonomy shared by all cubo packages.
package errdefs
