package bootstrap

import (
	"net"
	"net/url"
	"strings"
)

// IsDevelopmentOrigin classifies the origin the store runs under. File
// scheme origins and loopback or 192.168/16 hosts are development contexts;
// an empty origin is not. Both full URLs and bare host[:port] are accepted.
func IsDevelopmentOrigin(origin string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(origin), "file:") {
		return true
	}

	host := origin
	if strings.Contains(origin, "://") {
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host = u.Hostname()
	} else if h, _, err := net.SplitHostPort(origin); err == nil {
		host = h
	}

	return isDevelopmentHost(host)
}

func isDevelopmentHost(host string) bool {
	host = strings.Trim(strings.ToLower(host), "[]")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if strings.HasPrefix(host, "192.168.") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
