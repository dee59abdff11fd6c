package httputil

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestClientSingleton(t *testing.T) {
	c1 := Client(TierMedium)
	c2 := Client(TierMedium)
	if c1 != c2 {
		t.Error("Client() should return the same instance for same tier")
	}

	if Client(TierFast) == Client(TierMedium) {
		t.Error("different tiers should return different clients")
	}
}

func TestClientTimeouts(t *testing.T) {
	tests := []struct {
		want    time.Duration
		getFunc func() *http.Client
	}{
		{5 * time.Second, FastClient},
		{30 * time.Second, MediumClient},
	}
	for _, tt := range tests {
		if c := tt.getFunc(); c.Timeout != tt.want {
			t.Errorf("got timeout %v, want %v", c.Timeout, tt.want)
		}
	}
}

func TestReadResponseBody(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		maxSize int64
		wantLen int
	}{
		{
			name:    "normal read",
			input:   "hello world",
			maxSize: 1024,
			wantLen: 11,
		},
		{
			name:    "truncated read",
			input:   strings.Repeat("x", 1000),
			maxSize: 100,
			wantLen: 100,
		},
		{
			name:    "default max size",
			input:   "test",
			maxSize: 0,
			wantLen: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadResponseBody(strings.NewReader(tt.input), tt.maxSize)
			if err != nil {
				t.Fatalf("ReadResponseBody() error = %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("ReadResponseBody() len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestDrainAndClose(t *testing.T) {
	r := &trackingReader{Reader: bytes.NewReader([]byte("test data"))}
	DrainAndClose(io.NopCloser(r))
	if !r.fullyRead {
		t.Error("DrainAndClose should fully drain the body")
	}
}

type trackingReader struct {
	io.Reader
	fullyRead bool
}

func (r *trackingReader) Read(p []byte) (n int, err error) {
	n, err = r.Reader.Read(p)
	if err == io.EOF {
		r.fullyRead = true
	}
	return
}

func TestDrainAndCloseNil(t *testing.T) {
	DrainAndClose(nil)
}
