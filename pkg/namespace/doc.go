/*
Package namespace wraps the Linux isolation primitives the runtime
composes: namespace clone attributes with identity mapping, private
mount propagation, bind and tmpfs mounts, pivot_root, proc mounting,
loopback bring-up, and credential switching.

Everything here runs either in the engine process (SysProcAttr) or
inside the container's freshly cloned namespaces (the rest); the mount
helpers assume private propagation has already been established.
*/
package namespace
