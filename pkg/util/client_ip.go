package util

import (
	"net"
	"strings"
)

// NormalizeIP strips ports and IPv6 zone/brackets so the same client always
// maps to the same session key. Unparsable input is returned trimmed.
func NormalizeIP(addr string) string {
	addr = strings.TrimSpace(addr)

	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}

	addr = strings.Trim(addr, "[]")

	if ip := net.ParseIP(addr); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}

		return ip.String()
	}

	return addr
}
