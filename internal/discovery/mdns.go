// Package discovery finds exchange servers on the local network over mDNS.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sort"
	"strconv"
	"sync"

	"github.com/brutella/dnssd"
)

const (
	DefaultDomain = "local"
	// baseURLKey is the TXT record carrying the server's public base URL.
	baseURLKey = "base_url"
)

type Service struct {
	Name    string // instance name, e.g. "stusave"
	Type    string // e.g. "_stusave-transfer._tcp"
	Domain  string
	Port    int
	BaseURL string
}

// Entry is a server found by Lookup.
type Entry struct {
	Name    string
	Host    string
	IPs     []net.IP
	Port    int
	BaseURL string
}

// URL returns the address clients should use: the advertised base URL if
// there is one, otherwise the first address found.
func (e Entry) URL() string {
	if e.BaseURL != "" {
		return e.BaseURL
	}
	host := e.Host
	if len(e.IPs) > 0 {
		host = e.IPs[0].String()
	}
	return (&url.URL{Scheme: "http", Host: net.JoinHostPort(host, strconv.Itoa(e.Port))}).String()
}

// Announce answers mDNS queries for svc until ctx is done.
func Announce(ctx context.Context, svc Service, logger *slog.Logger) error {
	if svc.Domain == "" {
		svc.Domain = DefaultDomain
	}
	text := map[string]string{"desc": "stusave transfer exchange"}
	if svc.BaseURL != "" {
		text[baseURLKey] = svc.BaseURL
	}

	service, err := dnssd.NewService(dnssd.Config{
		Name:   svc.Name,
		Type:   svc.Type,
		Domain: svc.Domain,
		// responder multicasts on every interface
		IPs:  nil,
		Text: text,
		Port: svc.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create mDNS service: %w", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("failed to create mDNS responder: %w", err)
	}
	if _, err := rp.Add(service); err != nil {
		return fmt.Errorf("failed to add mDNS service: %w", err)
	}

	logger.Info("announcing exchange over mDNS", "name", svc.Name, "type", svc.Type, "port", svc.Port)
	if err := rp.Respond(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mDNS responder: %w", err)
	}
	logger.Info("mDNS announcement stopped")
	return nil
}

// Lookup browses for serviceType until ctx is done and returns the servers
// still present at that point, sorted by name.
func Lookup(ctx context.Context, serviceType, domain string) ([]Entry, error) {
	var (
		mu      sync.Mutex
		entries = make(map[string]Entry)
	)

	add := func(e dnssd.BrowseEntry) {
		mu.Lock()
		defer mu.Unlock()
		entries[entryKey(e)] = fromBrowse(e)
	}
	remove := func(e dnssd.BrowseEntry) {
		mu.Lock()
		defer mu.Unlock()
		delete(entries, entryKey(e))
	}

	err := dnssd.LookupType(ctx, serviceQuery(serviceType, domain), add, remove)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("mDNS lookup failed: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return sortedEntries(entries), nil
}

func serviceQuery(serviceType, domain string) string {
	if domain == "" {
		domain = DefaultDomain
	}
	return fmt.Sprintf("%s.%s.", serviceType, domain)
}

func entryKey(e dnssd.BrowseEntry) string {
	return fmt.Sprintf("%s:%s:%s", e.Name, e.Type, e.Domain)
}

func fromBrowse(e dnssd.BrowseEntry) Entry {
	return Entry{
		Name:    e.Name,
		Host:    e.Host,
		IPs:     e.IPs,
		Port:    e.Port,
		BaseURL: e.Text[baseURLKey],
	}
}

func sortedEntries(m map[string]Entry) []Entry {
	out := make([]Entry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
