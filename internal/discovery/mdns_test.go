package discovery

import (
	"net"
	"testing"

	"github.com/brutella/dnssd"
	"github.com/stretchr/testify/assert"
)

func TestServiceQuery(t *testing.T) {
	assert.Equal(t, "_stusave-transfer._tcp.local.", serviceQuery("_stusave-transfer._tcp", ""))
	assert.Equal(t, "_x._tcp.lan.", serviceQuery("_x._tcp", "lan"))
}

func TestEntryURL(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"advertised base url wins", Entry{BaseURL: "https://stusave.example", IPs: []net.IP{net.ParseIP("10.0.0.2")}, Port: 8080}, "https://stusave.example"},
		{"ipv4", Entry{IPs: []net.IP{net.ParseIP("192.168.1.20")}, Port: 8080}, "http://192.168.1.20:8080"},
		{"ipv6", Entry{IPs: []net.IP{net.ParseIP("fe80::1")}, Port: 9000}, "http://[fe80::1]:9000"},
		{"host only", Entry{Host: "laptop.local", Port: 8080}, "http://laptop.local:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.URL())
		})
	}
}

func TestFromBrowse(t *testing.T) {
	e := fromBrowse(dnssd.BrowseEntry{
		Name: "stusave",
		Type: "_stusave-transfer._tcp",
		Host: "laptop",
		IPs:  []net.IP{net.ParseIP("10.1.1.1")},
		Port: 8080,
		Text: map[string]string{baseURLKey: "http://10.1.1.1:8080"},
	})
	assert.Equal(t, "stusave", e.Name)
	assert.Equal(t, "http://10.1.1.1:8080", e.BaseURL)
	assert.Equal(t, 8080, e.Port)
}

func TestSortedEntries(t *testing.T) {
	out := sortedEntries(map[string]Entry{
		"b": {Name: "beta"},
		"a": {Name: "alpha"},
	})
	assert.Equal(t, []Entry{{Name: "alpha"}, {Name: "beta"}}, out)
}
