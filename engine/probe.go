package engine

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/okpiyush/pulse-monitor/model"
)

// probeTimeout bounds one whole probe: connect, headers, body.
const probeTimeout = 15 * time.Second

// HTTPProber issues a GET against the target URL and classifies the result.
type HTTPProber struct {
	client *http.Client
	now    func() time.Time
}

// NewHTTPProber creates a prober with the standard 15 s overall timeout.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{
		client: &http.Client{Timeout: probeTimeout},
		now:    time.Now,
	}
}

// NewHTTPProberWithTimeout creates a prober with a custom timeout. Used
// by tests.
func NewHTTPProberWithTimeout(timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Probe performs one HTTP GET. The body is streamed: TTFB is taken when
// the response headers arrive, then the body is drained to measure total
// elapsed time and payload size.
func (p *HTTPProber) Probe(ctx context.Context, target *model.Target) model.ProbeOutcome {
	start := p.now()
	out := model.ProbeOutcome{StartedAt: start}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		out.ElapsedSec = p.now().Sub(start).Seconds()
		out.ErrorMessage = "Invalid URL"
		return out
	}
	req.Header.Set("User-Agent", "pulse-monitor/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		out.ElapsedSec = p.now().Sub(start).Seconds()
		out.ErrorMessage = classifyTransportError(err)
		return out
	}
	defer resp.Body.Close()

	ttfb := p.now().Sub(start).Seconds()
	out.TTFBSec = &ttfb

	code := resp.StatusCode
	out.StatusCode = &code

	n, err := io.Copy(io.Discard, resp.Body)
	out.ElapsedSec = p.now().Sub(start).Seconds()
	if err != nil {
		out.ErrorMessage = classifyTransportError(err)
		return out
	}
	out.PayloadBytes = &n

	if code >= 200 && code < 400 {
		out.IsSuccess = true
	} else {
		out.ErrorMessage = fmt.Sprintf("HTTP %d", code)
	}
	return out
}

// classifyTransportError turns a transport-level failure into a short
// human description.
func classifyTransportError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Request timed out"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "DNS lookup failed"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "Connection refused"
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return "Connection reset"
	}
	var certErr *x509.CertificateInvalidError
	var unknownCA x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownCA) || errors.As(err, &hostErr) {
		return "TLS certificate error"
	}
	if errors.Is(err, context.Canceled) {
		return "Request canceled"
	}
	// Unwrap the url.Error prefix for a tighter message.
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 && idx+2 < len(msg) {
		msg = msg[idx+2:]
	}
	return msg
}
