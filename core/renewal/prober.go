package renewal

import (
	"context"
	"net"
	"strconv"
	"time"
)

// ProbeTarget identifies one host:port that must answer from the outside
// before the scheduler is armed.
type ProbeTarget struct {
	Host string
	Port int
}

// PortMapping describes a forwarding rule a prober may create for a port
// that did not answer.
type PortMapping struct {
	Protocol     string
	ExternalPort int
	InternalPort int
}

// Prober checks reachability of the serving ports at startup and, when
// they do not answer, may try to open them, for example through the
// gateway's UPnP interface. Catching closed ports before the first order
// avoids burning CA rate limits on doomed validations.
type Prober interface {
	// CheckPortsOpened reports reachability per target, in target order.
	CheckPortsOpened(ctx context.Context, targets []ProbeTarget) ([]bool, error)

	// OpenPorts tries to create the given forwarding rules, waiting up to
	// wait for them to take effect. It returns false when the prober has
	// no way to forward ports.
	OpenPorts(ctx context.Context, mappings []PortMapping, wait time.Duration) (bool, error)
}

// DialProber probes reachability with plain TCP dials. It cannot create
// forwarding rules, so OpenPorts always reports false.
type DialProber struct {
	// Timeout per connection attempt, five seconds when zero.
	Timeout time.Duration
}

func (p DialProber) CheckPortsOpened(ctx context.Context, targets []ProbeTarget) ([]bool, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}

	opened := make([]bool, len(targets))
	for i, target := range targets {
		addr := net.JoinHostPort(target.Host, strconv.Itoa(target.Port))
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		conn.Close()
		opened[i] = true
	}
	return opened, nil
}

func (DialProber) OpenPorts(context.Context, []PortMapping, time.Duration) (bool, error) {
	return false, nil
}
