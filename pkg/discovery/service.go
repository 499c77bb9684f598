package discovery

import (
	"context"
	"fmt"
	"net"
)

const (
	DefaultServerType = "_nearby-xchg._tcp"
	DefaultDomain     = "local"
)

// TXT record keys announced by every endpoint.
const (
	TextEndpointID = "id"
	TextName       = "name"
	TextServiceID  = "svc"
)

type ServiceInfo struct {
	Name   string // instance name
	Type   string // service type, e.g. "_nearby-xchg._tcp"
	Domain string // domain, e.g. "local"
	Addr   net.IP
	Port   int
	Text   map[string]string
}

// EndpointID is the endpoint id carried in the TXT record.
func (s ServiceInfo) EndpointID() string {
	return s.Text[TextEndpointID]
}

// DisplayName is the human readable name carried in the TXT record, falling
// back to the instance name.
func (s ServiceInfo) DisplayName() string {
	if name := s.Text[TextName]; name != "" {
		return name
	}
	return s.Name
}

// ServiceID is the application service id carried in the TXT record.
func (s ServiceInfo) ServiceID() string {
	return s.Text[TextServiceID]
}

// URL is the base URL of the endpoint's HTTP API.
func (s ServiceInfo) URL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(s.Addr.String(), fmt.Sprint(s.Port)))
}

// FullType is the browse name of a service type in a domain.
func FullType(serviceType, domain string) string {
	return fmt.Sprintf("%s.%s.", serviceType, domain)
}

type Adapter interface {
	// Announce publishes the service until ctx is done.
	Announce(ctx context.Context, service ServiceInfo) error
	// Browse calls found and lost as instances of the service type come and go
	// until ctx is done.
	Browse(ctx context.Context, service string, found, lost func(ServiceInfo)) error
}
