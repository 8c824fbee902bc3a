package peers

import (
	"fmt"
	"strings"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

// ParseSeed parses a bootstrap peer given as pubkey@address. The address is
// either host:port or a multiaddr with a transport component, eg.
// /ip4/10.0.0.1/tcp/1337 or /dns4/seed.example.org/tcp/1337.
func ParseSeed(seed string) (*Peer, error) {
	parts := strings.SplitN(seed, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("seed %q should be of the form pubkey@address", seed)
	}

	addr, err := ParseAddr(parts[1])
	if err != nil {
		return nil, fmt.Errorf("seed %q: %w", seed, err)
	}

	return NewPeer(parts[0], addr, ""), nil
}

// ParseAddr converts an address to the host:port form used by the transport.
// Strings that do not start with '/' are returned unchanged.
func ParseAddr(addr string) (string, error) {
	if !strings.HasPrefix(addr, "/") {
		return addr, nil
	}

	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return "", err
	}

	// dns multiaddrs cannot be converted without resolution, keep the name.
	for _, code := range []int{ma.P_DNS, ma.P_DNS4, ma.P_DNS6} {
		if host, err := maddr.ValueForProtocol(code); err == nil {
			port, err := maddr.ValueForProtocol(ma.P_TCP)
			if err != nil {
				return "", fmt.Errorf("multiaddr %s has no tcp port", addr)
			}
			return host + ":" + port, nil
		}
	}

	netAddr, err := manet.ToNetAddr(maddr)
	if err != nil {
		return "", err
	}

	return netAddr.String(), nil
}
