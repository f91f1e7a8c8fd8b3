/*
Package registry pulls images from OCI-Distribution v2 registries.

A pull resolves the reference to a registry host, repository, and tag,
fetches an anonymous bearer token for Docker Hub, retrieves the manifest
(following a manifest list or index to the linux/amd64 entry), downloads
the config and layer blobs, decompresses gzipped layers, and records
everything in the local image store. Pulling an already-stored reference
performs no network I/O.
*/
package registry
