package bookdb

import (
	"encoding/base64"
	"strings"
)

// Credentials holds the bookDB base URL and login.
type Credentials struct {
	URL      string
	Username string
	Password string
}

// Configured reports whether URL, username and password are all set.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.URL) != "" &&
		strings.TrimSpace(c.Username) != "" &&
		strings.TrimSpace(c.Password) != ""
}

// AuthHeader returns the Basic authorization header value, or "" when
// either the username or the password is blank.
func (c Credentials) AuthHeader() string {
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
		return ""
	}
	token := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
	return "Basic " + token
}
