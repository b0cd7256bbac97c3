package supervisor

import (
	"context"
	"net"
	"strconv"
	"time"
)

// PortProbe reports whether something accepts TCP connections on
// localhost:port.
type PortProbe func(ctx context.Context, port int) bool

// DialTimeout bounds a single liveness probe.
const DialTimeout = time.Second

// DialProbe connects to localhost:port and immediately closes the connection.
func DialProbe(ctx context.Context, port int) bool {
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort("localhost", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
