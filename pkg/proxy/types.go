package proxy

// Scheme is the protocol spoken to the upstream proxy
type Scheme string

const (
	SchemeHTTP   Scheme = "http"
	SchemeSOCKS5 Scheme = "socks5"
)

// AuthStyle selects how the encoded credential travels in the proxy URL
type AuthStyle string

const (
	// AuthUserInfo carries the whole credential as user-info: <credential>@host:port
	AuthUserInfo AuthStyle = "userinfo"
	// AuthSplit uses the fixed username "user" with the credential as password
	AuthSplit AuthStyle = "split"
)

const (
	DefaultHost = "proxy.iploop.io"
	DefaultPort = 8880

	splitUsername = "user"
)

// Identity holds the targeting parameters for one proxied request.
// Empty fields are not encoded.
type Identity struct {
	APIKey  string
	Country string
	City    string
	Session string
	Render  bool
}

// Endpoint is the upstream forward proxy every request is routed through
type Endpoint struct {
	Host   string
	Port   int
	Scheme Scheme
	Auth   AuthStyle
}

// DefaultEndpoint returns the public gateway over plain HTTP with user-info auth
func DefaultEndpoint() Endpoint {
	return Endpoint{
		Host:   DefaultHost,
		Port:   DefaultPort,
		Scheme: SchemeHTTP,
		Auth:   AuthUserInfo,
	}
}
