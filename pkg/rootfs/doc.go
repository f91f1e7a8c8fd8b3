/*
Package rootfs assembles container root filesystems.

An image's layers are extracted in manifest order into a target
directory, base layer first, with the host tar utility. After all layers
are applied the essential directory set (dev, proc, sys, tmp, etc, var,
var/log, var/tmp) is guaranteed to exist. When no image is available a
minimal skeleton rootfs can be created instead, seeded with a few host
binaries.
*/
package rootfs
