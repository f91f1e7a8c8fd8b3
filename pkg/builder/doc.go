/*
Package builder turns recipes into images.

A build extracts the base image into a scratch rootfs, walks the recipe
steps in order (RUN inside a chroot of the working rootfs, COPY from the
build context, ENV/WORKDIR/CMD into the accumulated image config), tars
the result into a single layer, and writes the manifest last so the new
image appears to readers only once it is complete. Missing base images
are pulled from their registry first.
*/
package builder
