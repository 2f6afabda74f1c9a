package proxy

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// NewEndpoint validates raw configuration values and builds an Endpoint.
// Empty values fall back to the defaults.
func NewEndpoint(host string, port int, scheme, auth string) (Endpoint, error) {
	ep := DefaultEndpoint()
	if host != "" {
		ep.Host = host
	}
	if port != 0 {
		ep.Port = port
	}
	if scheme != "" {
		ep.Scheme = Scheme(strings.ToLower(scheme))
	}
	if auth != "" {
		ep.Auth = AuthStyle(strings.ToLower(auth))
	}
	if err := ep.Validate(); err != nil {
		return Endpoint{}, err
	}
	return ep, nil
}

// Validate reports whether the endpoint can be used to build proxy URLs
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return fmt.Errorf("proxy host is required")
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("invalid proxy port: %d", e.Port)
	}
	switch e.Scheme {
	case SchemeHTTP, SchemeSOCKS5:
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", e.Scheme)
	}
	switch e.Auth {
	case AuthUserInfo, AuthSplit:
	default:
		return fmt.Errorf("unsupported proxy auth style: %s", e.Auth)
	}
	return nil
}

// Address returns host:port of the proxy
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL builds the proxy URL carrying the credential in the endpoint's auth style.
//
// With AuthUserInfo the credential is split at its first separator so that
// the Basic proxy authorization derived from the URL is exactly the
// credential. With AuthSplit the username is "user" and the password is the
// whole credential.
func (e Endpoint) URL(credential string) *url.URL {
	u := &url.URL{
		Scheme: string(e.Scheme),
		Host:   e.Address(),
	}
	switch e.Auth {
	case AuthSplit:
		u.User = url.UserPassword(splitUsername, credential)
	default:
		if user, pass, ok := strings.Cut(credential, separator); ok {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(credential)
		}
	}
	return u
}

// TransportURL returns the proxy URL as a transport config string
func (e Endpoint) TransportURL(credential string) string {
	return e.URL(credential).String()
}
