// Package fetch makes a single HTTP request through the upstream proxy
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Jigsaw-Code/outline-sdk/transport"
	"github.com/Jigsaw-Code/outline-sdk/x/configurl"
)

// DefaultTimeout bounds one attempt when Options.Timeout is zero
const DefaultTimeout = 30 * time.Second

// Options contains all the configuration options for making a fetch request
type Options struct {
	// Upstream proxy. socks5 URLs are dialed through a transport dialer,
	// anything else is used as an HTTP forward proxy. Nil connects directly.
	Proxy *url.URL
	// HTTP method to use (default: "GET")
	Method string
	// Headers sent as is
	Header http.Header
	// Request body, resent unchanged on every attempt
	Body []byte
	// Timeout for the whole attempt including the body read (default: 30s)
	Timeout time.Duration
	// Return 3xx responses instead of following them
	NoRedirect bool
}

// Result contains the response from a fetch request
type Result struct {
	StatusCode int
	Header     http.Header
	// Response body, decoded according to Content-Encoding
	Body []byte
}

// Text returns the body as a string, replacing invalid UTF-8
func (r *Result) Text() string {
	return strings.ToValidUTF8(string(r.Body), "\uFFFD")
}

// JSON decodes the body into v
func (r *Result) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// TransportError is a failure on the way to or through the proxy:
// dial errors, proxy handshake errors, resets and timeouts.
type TransportError struct {
	Err     error
	Timeout bool
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Do makes one HTTP request with the given options.
//
// A cancelled or expired ctx is returned as the context error. Failures
// while talking to the network are returned as *TransportError; anything
// else means the request could not be built.
func Do(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", target.Scheme)
	}

	tr, err := newTransport(opts.Proxy)
	if err != nil {
		return nil, err
	}
	defer tr.CloseIdleConnections()

	httpClient := &http.Client{
		Transport: tr,
		Timeout:   opts.Timeout,
	}
	if opts.NoRedirect {
		httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, opts.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for name, values := range opts.Header {
		req.Header[name] = append([]string(nil), values...)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Err: fmt.Errorf("HTTP request failed: %w", err), Timeout: isTimeout(err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Err: fmt.Errorf("read of page body failed: %w", err), Timeout: isTimeout(err)}
	}

	header := resp.Header.Clone()
	if enc := header.Get("Content-Encoding"); enc != "" {
		// Undecodable bodies are returned raw with the header left in place
		if decoded, err := decodeBody(raw, enc); err == nil {
			raw = decoded
			header.Del("Content-Encoding")
			header.Del("Content-Length")
		}
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       raw,
	}, nil
}

func newTransport(proxyURL *url.URL) (*http.Transport, error) {
	tr := &http.Transport{
		TLSHandshakeTimeout: 15 * time.Second,
	}
	if proxyURL == nil {
		return tr, nil
	}

	if proxyURL.Scheme != "socks5" {
		tr.Proxy = http.ProxyURL(proxyURL)
		return tr, nil
	}

	dialer, err := streamDialer(proxyURL)
	if err != nil {
		return nil, err
	}
	tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if !strings.HasPrefix(network, "tcp") {
			return nil, fmt.Errorf("protocol not supported: %v", network)
		}
		return dialer.DialStream(ctx, addr)
	}
	return tr, nil
}

// streamDialer builds the socks5 dialer from the proxy URL, credential included
func streamDialer(proxyURL *url.URL) (transport.StreamDialer, error) {
	dialer, err := configurl.NewDefaultConfigToDialer().NewStreamDialer(proxyURL.String())
	if err != nil {
		return nil, fmt.Errorf("could not create dialer: %w", err)
	}
	return dialer, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
