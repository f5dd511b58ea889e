package directory

import (
	"net"
	"strconv"
	"testing"
	"time"
)

func TestProbeTCPLocalListener(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	if !probeTCP("127.0.0.1", strconv.Itoa(port), 500*time.Millisecond) {
		t.Errorf("port %d should be reported open", port)
	}

	l.Close()
	if probeTCP("127.0.0.1", strconv.Itoa(port), 500*time.Millisecond) {
		t.Errorf("closed port %d should be reported closed", port)
	}
}

func TestProbePorts(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer l.Close()
	open := strconv.Itoa(l.Addr().(*net.TCPAddr).Port)

	got := probePorts("127.0.0.1", []string{open, "1"}, 500*time.Millisecond)
	if len(got) != 1 || got[0] != open {
		t.Errorf("probePorts = %v, want [%s]", got, open)
	}
}

func TestSplitNetworkURI(t *testing.T) {
	cases := []struct {
		uri     string
		host    string
		port    string
		network bool
	}{
		{"ipp://10.0.0.250:631/ipp/print", "10.0.0.250", "631", true},
		{"ipp://plotter.local/ipp/print", "plotter.local", "631", true},
		{"ipps://plotter.local/", "plotter.local", "631", true},
		{"http://10.0.0.5/", "10.0.0.5", "80", true},
		{"https://10.0.0.5/", "10.0.0.5", "443", true},
		{"socket://192.168.1.77", "192.168.1.77", "9100", true},
		{"socket://192.168.1.77:9101", "192.168.1.77", "9101", true},
		{"lpd://old-printer/queue", "old-printer", "515", true},
		{"usb://HP/DesignJet%20T1200", "", "", false},
		{"file:///dev/null", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		host, port, network := splitNetworkURI(tc.uri)
		if host != tc.host || port != tc.port || network != tc.network {
			t.Errorf("splitNetworkURI(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.uri, host, port, network, tc.host, tc.port, tc.network)
		}
	}
}
