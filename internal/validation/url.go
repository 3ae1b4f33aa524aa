package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// APIURLValidator checks the tender API base URL before any request is
// made with it.
type APIURLValidator struct {
	// AllowInsecure permits plain http to non-loopback hosts
	AllowInsecure bool
	// AllowPrivateIPs permits RFC 1918 and link-local addresses
	AllowPrivateIPs bool
	MaxLength       int
}

// NewAPIURLValidator returns a validator that requires https except for
// loopback hosts, unless allowInsecure is set.
func NewAPIURLValidator(allowInsecure bool) *APIURLValidator {
	return &APIURLValidator{
		AllowInsecure:   allowInsecure,
		AllowPrivateIPs: allowInsecure,
		MaxLength:       2048,
	}
}

// ValidateAndNormalize validates a base URL and returns it without a
// trailing slash. A missing scheme defaults to https.
func (v *APIURLValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return "", fmt.Errorf("API URL cannot be empty")
	}
	if len(input) > v.MaxLength {
		return "", fmt.Errorf("API URL too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("API URL contains invalid characters")
	}

	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("API URL must use http or https")
	}
	if u.Host == "" || u.Hostname() == "" {
		return "", fmt.Errorf("API URL must have a hostname")
	}
	if u.User != nil {
		return "", fmt.Errorf("API URL must not embed credentials; set api.token instead")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("API URL must not carry a query or fragment")
	}
	if strings.Contains(u.Path, "..") {
		return "", fmt.Errorf("directory traversal patterns not allowed in API URL path")
	}

	hostname := u.Hostname()
	local := isLocalhost(hostname)

	if u.Scheme == "http" && !local && !v.AllowInsecure {
		return "", fmt.Errorf("plain http is only allowed for localhost (set api.allow_insecure to override)")
	}

	if ip := net.ParseIP(hostname); ip != nil && !local {
		if ip.IsUnspecified() || ip.IsMulticast() {
			return "", fmt.Errorf("API URL host %s is not routable", hostname)
		}
		if !v.AllowPrivateIPs && (ip.IsPrivate() || ip.IsLinkLocalUnicast()) {
			return "", fmt.Errorf("private IP addresses are not permitted")
		}
	}

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String(), nil
}

// isLocalhost checks if a hostname refers to the local machine
func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return true
	}
	ip := net.ParseIP(hostname)
	return ip != nil && ip.IsLoopback()
}
