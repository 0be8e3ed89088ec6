package engine

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const backlog = 128

// listen creates a non-blocking TCP listening socket bound to
// host:port, mirroring listenSocket's bind/listen sequence but built
// on golang.org/x/sys/unix instead of the older syscall package, and
// parsing a dotted-quad host string rather than taking a fixed [4]byte.
func listen(host string, port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("engine: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("engine: setsockopt SO_REUSEADDR: %w", err)
	}

	addr, err := parseIPv4(host)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}

	sa := &unix.SockaddrInet4{Port: port, Addr: addr}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("engine: bind %s:%d: %w", host, port, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("engine: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("engine: nonblock listener: %w", err)
	}
	return fd, nil
}

// parseIPv4 turns a dotted-quad string into the 4-byte form
// unix.SockaddrInet4 wants. "0.0.0.0" and "" both mean any interface.
func parseIPv4(host string) ([4]byte, error) {
	if host == "" || host == "0.0.0.0" {
		return [4]byte{0, 0, 0, 0}, nil
	}
	var addr [4]byte
	var part, idx int
	for i := 0; i <= len(host); i++ {
		if i == len(host) || host[i] == '.' {
			if idx > 3 {
				return addr, fmt.Errorf("engine: invalid host %q", host)
			}
			addr[idx] = byte(part)
			idx++
			part = 0
			continue
		}
		c := host[i]
		if c < '0' || c > '9' {
			return addr, fmt.Errorf("engine: invalid host %q", host)
		}
		part = part*10 + int(c-'0')
		if part > 255 {
			return addr, fmt.Errorf("engine: invalid host %q", host)
		}
	}
	if idx != 4 {
		return addr, fmt.Errorf("engine: invalid host %q", host)
	}
	return addr, nil
}

func setTCPNoDelay(fd int) {
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}
