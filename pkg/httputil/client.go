// Package httputil provides the shared HTTP plumbing for outbound
// calls: pooled clients per timeout tier, bounded body reads and a
// semaphore for fire-and-forget work.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize bounds response body reads. Remote scoring engines
// and embedding backends are external services; an unbounded read
// from a misbehaving one must not take the process down.
const MaxResponseSize = 10 * 1024 * 1024 // 10MB

// sharedTransport pools TCP connections across all outbound calls.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// TimeoutTier selects a client timeout class.
type TimeoutTier int

const (
	// TierFast for scoring engine calls, which carry their own
	// context deadline well under this bound (5s).
	TierFast TimeoutTier = iota
	// TierMedium for embedding requests (30s).
	TierMedium
)

var (
	clientFast   *http.Client
	clientMedium *http.Client
	clientOnce   sync.Once
)

func initClients() {
	clientFast = &http.Client{
		Timeout:   5 * time.Second,
		Transport: sharedTransport,
	}
	clientMedium = &http.Client{
		Timeout:   30 * time.Second,
		Transport: sharedTransport,
	}
}

// Client returns the shared client for a timeout tier. Use these
// instead of constructing http.Client per call site so every caller
// draws from the same connection pool.
func Client(tier TimeoutTier) *http.Client {
	clientOnce.Do(initClients)
	if tier == TierFast {
		return clientFast
	}
	return clientMedium
}

// FastClient returns the 5s-timeout client.
func FastClient() *http.Client {
	return Client(TierFast)
}

// MediumClient returns the 30s-timeout client.
func MediumClient() *http.Client {
	return Client(TierMedium)
}

// ReadResponseBody reads a response body up to maxSize bytes.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose drains and closes a response body so the underlying
// connection returns to the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
