// Package image stores OCI-style image manifests and layer blobs on
// disk, keyed by reference.
package image
