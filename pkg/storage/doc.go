/*
Package storage persists per-container bundles under the runtime root.

Each bundle directory <root>/<container-id>/ holds config.json (the full
container, immutable after creation) and state.json (an OCI runtime-spec
State summary, rewritten atomically on every status, pid, or exit-code
update). Writes go through a temp file, fsync, and rename so a crashed
writer never leaves a partial document behind.

The package also provides the PID liveness probe the engine uses at
construction time to reconcile containers whose process died while no
engine was watching.
*/
package storage
