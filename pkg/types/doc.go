// Package types holds the container data model shared across cubo:
// containers, their configuration, volume mounts, port mappings, and the
// lifecycle status enumeration.
package types
