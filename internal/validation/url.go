package validation

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// URLValidator checks server base URLs and links handed to external viewers.
type URLValidator struct {
	// AllowLocalhost determines if loopback hosts are permitted
	AllowLocalhost bool
	// AllowPrivateIPs determines if private and link-local addresses are permitted
	AllowPrivateIPs bool
	// MaxLength is the maximum allowed URL length
	MaxLength int
}

func NewURLValidator() *URLValidator {
	return &URLValidator{
		MaxLength: 2048,
	}
}

// NewPermissiveURLValidator allows local development servers.
func NewPermissiveURLValidator() *URLValidator {
	return &URLValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		MaxLength:       2048,
	}
}

// ForConfig returns the validator matching the api.allow_private setting.
func ForConfig(allowPrivate bool) *URLValidator {
	if allowPrivate {
		return NewPermissiveURLValidator()
	}
	return NewURLValidator()
}

// ValidateBaseURL validates an API base URL and returns it without a
// trailing slash, query or fragment.
func (v *URLValidator) ValidateBaseURL(input string) (*url.URL, error) {
	u, err := v.parse(input)
	if err != nil {
		return nil, err
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("base URL must not carry a query or fragment")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u, nil
}

// ValidateLink validates a link found in post content before it is passed
// to an external program.
func (v *URLValidator) ValidateLink(input string) (string, error) {
	u, err := v.parse(input)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(u.Hostname(), "-") {
		return "", fmt.Errorf("invalid hostname")
	}
	return u.String(), nil
}

func (v *URLValidator) parse(input string) (*url.URL, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}
	if v.MaxLength > 0 && len(input) > v.MaxLength {
		return nil, fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'`\x00\n\r") {
		return nil, fmt.Errorf("URL contains invalid characters")
	}

	u, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("URL must use http or https protocol")
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL must have a valid hostname")
	}
	if u.User != nil {
		return nil, fmt.Errorf("URL must not embed credentials")
	}
	if err := v.validateHost(u.Hostname()); err != nil {
		return nil, err
	}
	return u, nil
}

func (v *URLValidator) validateHost(hostname string) error {
	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not permitted")
	}

	addr, err := netip.ParseAddr(hostname)
	if err != nil {
		return nil
	}
	if addr.IsUnspecified() || addr == netip.AddrFrom4([4]byte{255, 255, 255, 255}) {
		return fmt.Errorf("unroutable address %s", addr)
	}
	if !v.AllowLocalhost && addr.IsLoopback() {
		return fmt.Errorf("localhost URLs are not permitted")
	}
	if !v.AllowPrivateIPs && isPrivate(addr) {
		return fmt.Errorf("private IP addresses are not permitted")
	}
	return nil
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" || strings.HasSuffix(hostname, ".localhost")
}

func isPrivate(addr netip.Addr) bool {
	return addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLoopback()
}
