/*
Package runtime is cubo's container engine.

The Engine keeps an in-memory registry of containers, mirrored to
per-container bundles on disk, and drives the container lifecycle:
create extracts a rootfs and persists the bundle, start launches the
isolated process, stop escalates SIGTERM to SIGKILL, remove deletes the
bundle. Engine construction reloads every bundle and reconciles
containers whose recorded process died while no engine was running.

Starting a container re-executes the cubo binary as a hidden init stage
inside freshly cloned mount, PID, UTS, and (usually) network and user
namespaces. Because the clone carries CLONE_NEWPID, the init stage is
PID 1 of the new namespace: it finishes isolation (private mounts,
volumes, pivot_root, hostname, proc, loopback, workdir, env, user),
spawns the container command, and reaps descendants until the command
exits, forwarding its exit status to the waiting engine.
*/
package runtime
