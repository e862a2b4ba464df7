package util

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

func GetFreeTcpPort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	defer func(l net.Listener) {
		_ = l.Close()
	}(l)

	port := l.Addr().(*net.TCPAddr).Port

	if port == 0 {
		return 0, fmt.Errorf("could not resolve a port (got 0)")
	}

	return port, nil
}

// PortInUse reports whether something accepts TCP connections on
// host:port within timeout.
func PortInUse(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
