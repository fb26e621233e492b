package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	wstransport "github.com/chaz8081/gostt-kbd/pkg/transport/ws"
)

// DefaultBrowseTimeout bounds Resolve when ctx has no deadline.
const DefaultBrowseTimeout = 5 * time.Second

// ErrNotFound is returned when no matching keyboard answers before the browse ends.
var ErrNotFound = errors.New("ws: no keyboard found")

// Browser browses for DNS-SD services. *zeroconf.Resolver satisfies it.
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// NewBrowser returns an mDNS browser on all interfaces.
func NewBrowser() (Browser, error) {
	return zeroconf.NewResolver(nil)
}

// Resolve finds the ws:// URL of the keyboard announced as instance. An empty instance matches
// the first keyboard found.
func Resolve(ctx context.Context, browser Browser, instance string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultBrowseTimeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 8)
	if err := browser.Browse(ctx, wstransport.ServiceType, wstransport.Domain, entries); err != nil {
		return "", fmt.Errorf("ws: mDNS browse failed: %w", err)
	}
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return "", ErrNotFound
			}
			if instance != "" && entry.Instance != instance {
				continue
			}
			if url, ok := entryURL(entry); ok {
				return url, nil
			}
		case <-ctx.Done():
			return "", ErrNotFound
		}
	}
}

func entryURL(entry *zeroconf.ServiceEntry) (string, bool) {
	var ip net.IP
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0]
	default:
		return "", false
	}
	path := wstransport.Path
	for _, txt := range entry.Text {
		if value, ok := strings.CutPrefix(txt, "path="); ok && value != "" {
			path = value
		}
	}
	return "ws://" + net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port)) + path, true
}
