package network

import (
	"testing"

	"github.com/medamarfilali/cubo/pkg/types"
)

func TestParsePortSpec(t *testing.T) {
	tests := []struct {
		spec string
		want types.PortMapping
		ok   bool
	}{
		{"8080:80", types.PortMapping{HostPort: 8080, ContainerPort: 80, Protocol: types.ProtocolTCP}, true},
		{"8080:80/tcp", types.PortMapping{HostPort: 8080, ContainerPort: 80, Protocol: types.ProtocolTCP}, true},
		{"8080:80/udp", types.PortMapping{HostPort: 8080, ContainerPort: 80, Protocol: types.ProtocolUDP}, true},
		{"8080:80/UDP", types.PortMapping{HostPort: 8080, ContainerPort: 80, Protocol: types.ProtocolUDP}, true},
		{"8080:80/sctp", types.PortMapping{HostPort: 8080, ContainerPort: 80, Protocol: types.ProtocolTCP}, true},
		{"invalid", types.PortMapping{}, false},
		{"8080", types.PortMapping{}, false},
		{"notaport:80", types.PortMapping{}, false},
		{"8080:notaport", types.PortMapping{}, false},
		{"99999:80", types.PortMapping{}, false},
	}

	for _, tt := range tests {
		got, ok := ParsePortSpec(tt.spec)
		if ok != tt.ok {
			t.Errorf("ParsePortSpec(%q) ok = %v, want %v", tt.spec, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParsePortSpec(%q) = %+v, want %+v", tt.spec, got, tt.want)
		}
	}
}
