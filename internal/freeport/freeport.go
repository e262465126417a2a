// Package freeport resolves a bindable IPv4 host:port pair for a server
// that wants to pick its own address before binding to it.
package freeport

import (
	"fmt"
	"net"
)

// Get binds to 127.0.0.1:0, reads back the port the OS assigned, and closes
// the listener before returning so the caller can bind the real server on
// it. IPv6 addresses are rejected — callers need an IPv4 address they can
// hand to MPI-launched peers on the same fabric.
func Get() (string, error) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("freeport: listen: %w", err)
	}
	defer l.Close()

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return "", fmt.Errorf("freeport: unexpected address type %T", l.Addr())
	}
	if addr.IP.To4() == nil {
		return "", fmt.Errorf("freeport: resolved a non-IPv4 address: %s", addr)
	}
	return fmt.Sprintf("%s:%d", addr.IP.String(), addr.Port), nil
}
