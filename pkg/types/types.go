package types

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a container
type Status string

const (
	StatusCreated    Status = "Created"
	StatusRunning    Status = "Running"
	StatusStopped    Status = "Stopped"
	StatusPaused     Status = "Paused"
	StatusError      Status = "Error"
	StatusRestarting Status = "Restarting"
)

// NetworkMode defines the network stack a container uses. Values other
// than the predefined constants name a custom network.
type NetworkMode string

const (
	NetworkBridge NetworkMode = "bridge"
	NetworkHost   NetworkMode = "host"
	NetworkNone   NetworkMode = "none"
)

// MountType defines how a volume mount is realized
type MountType string

const (
	// MountBind bind-mounts a host path
	MountBind MountType = "bind"
	// MountVolume mounts a named volume managed by the runtime
	MountVolume MountType = "volume"
	// MountTmpfs mounts a fresh in-memory filesystem
	MountTmpfs MountType = "tmpfs"
)

// Protocol is the transport protocol of a published port
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// RestartMode defines when a container should be restarted
type RestartMode string

const (
	RestartNo            RestartMode = "no"
	RestartAlways        RestartMode = "always"
	RestartUnlessStopped RestartMode = "unless-stopped"
	RestartOnFailure     RestartMode = "on-failure"
)

// RestartPolicy defines container restart behavior
type RestartPolicy struct {
	Mode       RestartMode `json:"mode"`
	MaxRetries int         `json:"max_retries,omitempty"`
}

// VolumeMount defines a volume mount point inside a container
type VolumeMount struct {
	// Host path for bind mounts, volume name for named volumes,
	// empty for tmpfs
	HostPath string `json:"host_path"`
	// Absolute path inside the container
	ContainerPath string `json:"container_path"`
	ReadOnly      bool   `json:"read_only"`
	MountType     MountType `json:"mount_type"`
}

// Bind constructs a bind mount from a host path.
func Bind(hostPath, containerPath string, readOnly bool) VolumeMount {
	return VolumeMount{
		HostPath:      hostPath,
		ContainerPath: containerPath,
		ReadOnly:      readOnly,
		MountType:     MountBind,
	}
}

// NamedVolume constructs a mount of a runtime-managed volume.
func NamedVolume(name, containerPath string, readOnly bool) VolumeMount {
	return VolumeMount{
		HostPath:      name,
		ContainerPath: containerPath,
		ReadOnly:      readOnly,
		MountType:     MountVolume,
	}
}

// Tmpfs constructs a tmpfs mount. The host path is unused.
func Tmpfs(containerPath string) VolumeMount {
	return VolumeMount{
		ContainerPath: containerPath,
		MountType:     MountTmpfs,
	}
}

// PortMapping defines port exposure from host to container
type PortMapping struct {
	HostPort      uint16   `json:"host_port"`
	ContainerPort uint16   `json:"container_port"`
	Protocol      Protocol `json:"protocol"`
	HostIP        string   `json:"host_ip,omitempty"`
}

// TCPPort constructs a TCP port mapping.
func TCPPort(hostPort, containerPort uint16) PortMapping {
	return PortMapping{HostPort: hostPort, ContainerPort: containerPort, Protocol: ProtocolTCP}
}

// UDPPort constructs a UDP port mapping.
func UDPPort(hostPort, containerPort uint16) PortMapping {
	return PortMapping{HostPort: hostPort, ContainerPort: containerPort, Protocol: ProtocolUDP}
}

// ContainerConfig carries the runtime configuration of a container.
// MemoryLimit and CPULimit are recorded but not enforced; TTY and Stdin
// are recorded but not wired.
type ContainerConfig struct {
	WorkingDir   string            `json:"working_dir,omitempty"`
	EnvVars      map[string]string `json:"env_vars"`
	VolumeMounts []VolumeMount     `json:"volume_mounts"`
	Ports        []PortMapping     `json:"ports"`
	MemoryLimit  uint64            `json:"memory_limit,omitempty"`
	CPULimit     float64           `json:"cpu_limit,omitempty"`
	User         string            `json:"user,omitempty"`
	Hostname     string            `json:"hostname,omitempty"`
	TTY          bool              `json:"tty"`
	Stdin        bool              `json:"stdin"`
	NetworkMode  NetworkMode       `json:"network_mode"`
	RestartPolicy RestartPolicy    `json:"restart_policy"`
}

// DefaultConfig returns the configuration a fresh container starts with.
func DefaultConfig() ContainerConfig {
	return ContainerConfig{
		EnvVars:       map[string]string{},
		NetworkMode:   NetworkBridge,
		RestartPolicy: RestartPolicy{Mode: RestartNo},
	}
}

// Container is the unit the runtime schedules
type Container struct {
	// Globally unique identifier (UUIDv4 canonical form)
	ID string `json:"id"`
	// Optional human-readable name
	Name string `json:"name,omitempty"`
	// Blueprint this container was created from
	Blueprint string `json:"blueprint"`
	// Command executed as PID 1 inside the container
	Command []string `json:"command"`
	Status  Status   `json:"status"`
	Config  ContainerConfig `json:"config"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	// Exit code of the main process, set on Stopped or Error
	ExitCode *int `json:"exit_code,omitempty"`
	// PID of the outermost host-visible container process
	PID *int `json:"pid,omitempty"`
}

// NewContainer constructs a Created container with a fresh identifier.
func NewContainer(blueprint string, command []string) *Container {
	return &Container{
		ID:        GenerateID(),
		Blueprint: blueprint,
		Command:   command,
		Status:    StatusCreated,
		Config:    DefaultConfig(),
		CreatedAt: time.Now().UTC(),
	}
}

// GenerateID returns a new unique container ID.
func GenerateID() string {
	return uuid.New().String()
}

// ShortID returns the first 12 characters of the ID, used for display
// and prefix lookups.
func (c *Container) ShortID() string {
	if len(c.ID) < 12 {
		return c.ID
	}
	return c.ID[:12]
}

// WithName sets the container name.
func (c *Container) WithName(name string) *Container {
	c.Name = name
	return c
}

// WithWorkdir sets the working directory.
func (c *Container) WithWorkdir(workdir string) *Container {
	c.Config.WorkingDir = workdir
	return c
}

// WithEnv sets an environment variable.
func (c *Container) WithEnv(key, value string) *Container {
	c.Config.EnvVars[key] = value
	return c
}

// WithVolume appends a volume mount.
func (c *Container) WithVolume(mount VolumeMount) *Container {
	c.Config.VolumeMounts = append(c.Config.VolumeMounts, mount)
	return c
}

// WithPort appends a port mapping.
func (c *Container) WithPort(port PortMapping) *Container {
	c.Config.Ports = append(c.Config.Ports, port)
	return c
}

// WithMemoryLimit records a memory limit in bytes.
func (c *Container) WithMemoryLimit(limit uint64) *Container {
	c.Config.MemoryLimit = limit
	return c
}

// WithCPULimit records a CPU limit in cores.
func (c *Container) WithCPULimit(limit float64) *Container {
	c.Config.CPULimit = limit
	return c
}

// WithUser sets the user ("uid" or "uid:gid") the command runs as.
func (c *Container) WithUser(user string) *Container {
	c.Config.User = user
	return c
}

// WithHostname sets the container hostname.
func (c *Container) WithHostname(hostname string) *Container {
	c.Config.Hostname = hostname
	return c
}

// IsRunning reports whether the container is in Running state.
func (c *Container) IsRunning() bool {
	return c.Status == StatusRunning
}

// IsStopped reports whether the container reached a terminal state.
func (c *Container) IsStopped() bool {
	return c.Status == StatusStopped || c.Status == StatusError
}

// UpdateStatus transitions the container and stamps the lifecycle
// timestamps: StartedAt is set once on the first transition to Running,
// FinishedAt once on the first transition to Stopped or Error.
func (c *Container) UpdateStatus(status Status) {
	c.Status = status
	now := time.Now().UTC()
	switch status {
	case StatusRunning:
		if c.StartedAt == nil {
			c.StartedAt = &now
		}
	case StatusStopped, StatusError:
		if c.FinishedAt == nil {
			c.FinishedAt = &now
		}
	}
}

// SetPID records the container's host-visible PID.
func (c *Container) SetPID(pid int) {
	c.PID = &pid
}

// SetExitCode records the exit code of the main process.
func (c *Container) SetExitCode(code int) {
	c.ExitCode = &code
}
