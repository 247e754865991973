package enrichment

import (
	"context"
	"fmt"
	"net"
	"strings"
)

type AddressResolver interface {
	Resolve(ctx context.Context, clientIP string) (string, error)
}

// PublicAddressResolver passes routable client addresses through. A loopback,
// private or unspecified address cannot be geolocated, so with fallback on it
// is replaced by this host's public address.
type PublicAddressResolver struct {
	upstream *upstream
	url      string
	fallback bool
}

func (r *PublicAddressResolver) Resolve(ctx context.Context, clientIP string) (string, error) {
	ip := net.ParseIP(strings.TrimSpace(clientIP))
	if ip != nil && isRoutable(ip) {
		return ip.String(), nil
	}
	if !r.fallback {
		if ip == nil {
			return "", fmt.Errorf("invalid client address %q", clientIP)
		}
		return ip.String(), nil
	}

	body, err := r.upstream.get(ctx, r.url)
	if err != nil {
		return "", err
	}

	public := net.ParseIP(strings.TrimSpace(string(body)))
	if public == nil {
		return "", fmt.Errorf("%s: unexpected response %q", r.upstream.name, truncate(string(body), 64))
	}
	return public.String(), nil
}

func isRoutable(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
