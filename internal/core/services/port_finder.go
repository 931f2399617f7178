package services

import (
	"fmt"
	"net"
	"strconv"

	"github.com/custodia-labs/topicseek/internal/core/domain"
)

// FindAvailablePort probes ports from first to last on host and returns
// the first one that accepts a listener. The probe listener is closed
// before returning, so the port can still be taken by another process.
func FindAvailablePort(host string, first, last int) (int, error) {
	if first < 1 || last > 65535 || first > last {
		return 0, fmt.Errorf("%w: port range %d-%d", domain.ErrInvalidInput, first, last)
	}
	for port := first; port <= last; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port on %s between %d and %d", host, first, last)
}
