// Package auth models the credential bundle used to authenticate a fetch.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// Mode selects how a request is authenticated.
type Mode string

const (
	// ModeNone sends the request without credentials.
	ModeNone Mode = "none"

	// ModeBasic sends an HTTP Basic Authorization header.
	ModeBasic Mode = "basic"

	// ModeBearer sends "Authorization: Bearer <token>".
	ModeBearer Mode = "bearer"

	// ModeAPIKey appends a key=value pair to the query string.
	ModeAPIKey Mode = "api_key"
)

// DefaultKeyName is the query parameter used for API keys when none is given.
const DefaultKeyName = "api_key"

// Credentials is an immutable credential bundle. Only the fields belonging
// to Mode are meaningful.
type Credentials struct {
	mode     Mode
	username string
	password string
	token    string
	keyName  string
	keyValue string
}

// None returns credentials that add nothing to the request.
func None() Credentials {
	return Credentials{mode: ModeNone}
}

// Basic returns HTTP Basic credentials.
func Basic(username, password string) Credentials {
	return Credentials{mode: ModeBasic, username: username, password: password}
}

// Bearer returns bearer token credentials.
func Bearer(token string) Credentials {
	return Credentials{mode: ModeBearer, token: token}
}

// APIKey returns credentials sent as a query parameter.
func APIKey(name, value string) Credentials {
	return Credentials{mode: ModeAPIKey, keyName: name, keyValue: value}
}

// Fields is the loose form of a credential bundle as it arrives from a
// form, flag set or JSON body.
type Fields struct {
	Mode     string `json:"mode" mapstructure:"mode"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Token    string `json:"token" mapstructure:"token"`
	KeyName  string `json:"key_name" mapstructure:"key_name"`
	KeyValue string `json:"key_value" mapstructure:"key_value"`
}

// FromFields builds validated credentials from loose input.
func FromFields(f Fields) (Credentials, error) {
	mode, err := ParseMode(f.Mode)
	if err != nil {
		return Credentials{}, err
	}

	var c Credentials
	switch mode {
	case ModeBasic:
		c = Basic(f.Username, f.Password)
	case ModeBearer:
		c = Bearer(f.Token)
	case ModeAPIKey:
		c = APIKey(f.KeyName, f.KeyValue)
	default:
		c = None()
	}

	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// ParseMode accepts the canonical mode names as well as the labels shown
// in the collector form.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "nenhuma":
		return ModeNone, nil
	case "basic", "basic auth":
		return ModeBasic, nil
	case "bearer", "bearer token":
		return ModeBearer, nil
	case "api_key", "apikey", "api key":
		return ModeAPIKey, nil
	default:
		return "", &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown auth mode %q", s)}
	}
}

// Mode returns the selected auth mode.
func (c Credentials) Mode() Mode {
	if c.mode == "" {
		return ModeNone
	}
	return c.mode
}

// Validate checks that every field of the selected mode is non-empty.
func (c Credentials) Validate() error {
	var missing []string
	switch c.Mode() {
	case ModeNone:
		return nil
	case ModeBasic:
		if c.username == "" {
			missing = append(missing, "username")
		}
		if c.password == "" {
			missing = append(missing, "password")
		}
	case ModeBearer:
		if c.token == "" {
			missing = append(missing, "token")
		}
	case ModeAPIKey:
		if c.keyName == "" {
			missing = append(missing, "key_name")
		}
		if c.keyValue == "" {
			missing = append(missing, "key_value")
		}
	default:
		return &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown auth mode %q", c.mode)}
	}

	if len(missing) > 0 {
		return &ValidationError{
			Field:  strings.Join(missing, ","),
			Reason: fmt.Sprintf("required for %s auth", c.Mode()),
		}
	}
	return nil
}

// Apply decorates req with the credentials.
func (c Credentials) Apply(req *http.Request) {
	switch c.Mode() {
	case ModeBasic:
		req.SetBasicAuth(c.username, c.password)
	case ModeBearer:
		req.Header.Set("Authorization", "Bearer "+c.token)
	case ModeAPIKey:
		q := req.URL.Query()
		q.Set(c.keyName, c.keyValue)
		req.URL.RawQuery = q.Encode()
	}
}

// SecretParam returns the query parameter name that carries a secret, or
// "" when the credentials do not touch the URL.
func (c Credentials) SecretParam() string {
	if c.Mode() == ModeAPIKey {
		return c.keyName
	}
	return ""
}

// Fingerprint returns a one-way digest identifying these credentials.
// Two bundles with the same mode and secrets share a fingerprint.
func (c Credentials) Fingerprint() string {
	if c.Mode() == ModeNone {
		return "anon"
	}
	h := sha256.New()
	for _, part := range []string{string(c.mode), c.username, c.password, c.token, c.keyName, c.keyValue} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// String never reveals secrets.
func (c Credentials) String() string {
	switch c.Mode() {
	case ModeBasic:
		return fmt.Sprintf("basic(%s:***)", c.username)
	case ModeBearer:
		return "bearer(***)"
	case ModeAPIKey:
		return fmt.Sprintf("api_key(%s=***)", c.keyName)
	default:
		return "none"
	}
}
