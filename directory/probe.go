package directory

import (
	"net"
	"net/url"
	"time"
)

// schemeDefaultPorts maps network printer URI schemes to their well-known
// ports, used when the URI carries no explicit port.
var schemeDefaultPorts = map[string]string{
	"ipp":    "631",
	"ipps":   "631",
	"http":   "80",
	"https":  "443",
	"socket": "9100",
	"lpd":    "515",
}

// splitNetworkURI extracts host and port from a device URI. network is
// false for local schemes (usb, file, parallel), which skip the dial tier.
func splitNetworkURI(rawURI string) (host, port string, network bool) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", "", false
	}
	def, ok := schemeDefaultPorts[u.Scheme]
	if !ok {
		return "", "", false
	}
	host = u.Hostname()
	if host == "" {
		return "", "", false
	}
	port = u.Port()
	if port == "" {
		port = def
	}
	return host, port, true
}

// probeTCP tries to connect to host:port with the given timeout and
// reports whether the connection was accepted.
func probeTCP(host, port string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// probePorts tries each port in turn and returns those that accepted a
// TCP connection.
func probePorts(ip string, ports []string, timeout time.Duration) []string {
	open := []string{}
	for _, p := range ports {
		if probeTCP(ip, p, timeout) {
			open = append(open, p)
		}
	}
	return open
}
