package http

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
)

// TLSProfile represents a browser TLS fingerprint
type TLSProfile struct {
	Name     string
	ClientID utls.ClientHelloID
}

var tlsProfiles = []TLSProfile{
	{Name: "Chrome_120", ClientID: utls.HelloChrome_120},
	{Name: "Chrome_131", ClientID: utls.HelloChrome_131},
	{Name: "Chrome_133", ClientID: utls.HelloChrome_133},
	{Name: "Firefox_120", ClientID: utls.HelloFirefox_120},
	{Name: "Edge_106", ClientID: utls.HelloEdge_106},
}

// TLSFingerprinter dials TLS connections that present a browser ClientHello
type TLSFingerprinter struct {
	profiles []TLSProfile

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewTLSFingerprinter creates a new TLS fingerprinter
func NewTLSFingerprinter() *TLSFingerprinter {
	return &TLSFingerprinter{
		profiles: tlsProfiles,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetRandomProfile returns a random TLS profile
func (tf *TLSFingerprinter) GetRandomProfile() TLSProfile {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return tf.profiles[tf.rnd.Intn(len(tf.profiles))]
}

// DialTLSContext is usable as http.Transport.DialTLSContext.
// ALPN is pinned to http/1.1 because net/http cannot speak h2 over a
// connection it did not negotiate itself.
func (tf *TLSFingerprinter) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("split address %s: %w", addr, err)
	}

	profile := tf.GetRandomProfile()
	spec, err := utls.UTLSIdToSpec(profile.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load TLS spec %s: %w", profile.Name, err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	uconn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloCustom)
	if err := uconn.ApplyPreset(&spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply TLS preset %s: %w", profile.Name, err)
	}

	if err := uconn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("TLS handshake with %s: %w", host, err)
	}

	return uconn, nil
}
