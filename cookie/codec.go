package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

// minSecretLength is the minimum secret length for HMAC-SHA256 signing.
const minSecretLength = 32

// Codec signs and verifies an opaque session identifier carried in an HTTP
// cookie. The cookie value is a tamper-evident encoding of the identifier:
// the signature proves the server issued it, preventing session fixation via
// a client-supplied arbitrary ID. The identifier itself carries no payload.
type Codec struct {
	name     string
	secrets  []string
	defaults Options
}

// Options configures cookie attributes applied by Write and Clear.
type Options struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Option is a functional option for configuring the codec.
type Option func(*Codec)

// WithPath sets the cookie path attribute.
func WithPath(path string) Option {
	return func(c *Codec) {
		c.defaults.Path = path
	}
}

// WithDomain sets the cookie domain attribute.
func WithDomain(domain string) Option {
	return func(c *Codec) {
		c.defaults.Domain = domain
	}
}

// WithSecure ensures the cookie is only sent over HTTPS.
func WithSecure(secure bool) Option {
	return func(c *Codec) {
		c.defaults.Secure = secure
	}
}

// WithSameSite sets the SameSite attribute for cross-site submission protection.
func WithSameSite(sameSite http.SameSite) Option {
	return func(c *Codec) {
		c.defaults.SameSite = sameSite
	}
}

// New creates a codec for the named cookie. The first secret signs new
// cookies; all secrets verify, which allows key rotation without
// invalidating live sessions.
func New(name string, secrets []string, opts ...Option) (*Codec, error) {
	if name == "" {
		return nil, fmt.Errorf("cookie codec: empty cookie name")
	}

	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}
	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d",
				ErrSecretTooShort, i, len(s), minSecretLength)
		}
	}

	c := &Codec{
		name:    name,
		secrets: secrets,
		defaults: Options{
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Write sets the session cookie on the response. MaxAge is derived from the
// remaining session lifetime so the browser drops the cookie together with
// the server-side record. The cookie is always HttpOnly.
func (c *Codec) Write(w http.ResponseWriter, sessionID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    c.sign(sessionID),
		Path:     c.defaults.Path,
		Domain:   c.defaults.Domain,
		MaxAge:   int(ttl.Seconds()),
		Secure:   c.defaults.Secure,
		HttpOnly: true,
		SameSite: c.defaults.SameSite,
	})
}

// Read extracts and verifies the session identifier from the request cookie.
// Returns ok=false when the cookie is absent, malformed, or fails signature
// verification. Callers decide the failure response; a tampered cookie is
// indistinguishable from a missing one.
func (c *Codec) Read(r *http.Request) (sessionID string, ok bool) {
	ck, err := r.Cookie(c.name)
	if err != nil {
		return "", false
	}

	id, err := c.verify(ck.Value)
	if err != nil {
		return "", false
	}

	return id, true
}

// Clear expires the session cookie on the client.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     c.defaults.Path,
		Domain:   c.defaults.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   c.defaults.Secure,
		HttpOnly: true,
		SameSite: c.defaults.SameSite,
	})
}

// sign creates an HMAC-SHA256 signature over the value.
func (c *Codec) sign(value string) string {
	mac := hmac.New(sha256.New, []byte(c.secrets[0]))
	mac.Write([]byte(value))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(value)) + "|" + signature
}

// verify checks the HMAC signature of a signed value against all secrets.
func (c *Codec) verify(signed string) (string, error) {
	encodedValue, signature, found := strings.Cut(signed, "|")
	if !found {
		return "", fmt.Errorf("cookie codec: invalid format")
	}

	value, err := base64.RawURLEncoding.DecodeString(encodedValue)
	if err != nil {
		return "", fmt.Errorf("cookie codec: invalid format")
	}

	validIndex := slices.IndexFunc(c.secrets, func(secret string) bool {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(value)
		expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
		return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
	})
	if validIndex < 0 {
		return "", fmt.Errorf("cookie codec: signature verification failed")
	}

	return string(value), nil
}
