package network

import (
	"strconv"
	"strings"

	"github.com/medamarfilali/cubo/pkg/types"
)

// ParsePortSpec parses a -p publish argument of the form
// HOST:CONTAINER[/tcp|/udp]. The protocol defaults to tcp; an unknown
// protocol suffix also falls back to tcp.
func ParsePortSpec(spec string) (types.PortMapping, bool) {
	portPart := spec
	protocol := types.ProtocolTCP
	if ports, proto, found := strings.Cut(spec, "/"); found {
		portPart = ports
		if strings.EqualFold(proto, "udp") {
			protocol = types.ProtocolUDP
		}
	}

	hostStr, containerStr, found := strings.Cut(portPart, ":")
	if !found {
		return types.PortMapping{}, false
	}

	hostPort, err := strconv.ParseUint(hostStr, 10, 16)
	if err != nil {
		return types.PortMapping{}, false
	}
	containerPort, err := strconv.ParseUint(containerStr, 10, 16)
	if err != nil {
		return types.PortMapping{}, false
	}

	return types.PortMapping{
		HostPort:      uint16(hostPort),
		ContainerPort: uint16(containerPort),
		Protocol:      protocol,
	}, true
}
