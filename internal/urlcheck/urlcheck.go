// Package urlcheck guards outbound scrape targets against SSRF.
//
// The check is purely lexical on the hostname string: no DNS lookup is
// performed. That keeps validation fast and dependency-free, but it
// does not defend against DNS rebinding to a private address after
// validation. Callers must treat it as a pre-flight filter, not a
// security boundary against a malicious resolver.
package urlcheck

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/retea-se/pag/internal/logger"
)

var privateRange172 = regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[0-1])\.`)

// Validator checks scrape URLs against an allowlist of venue domains.
type Validator struct {
	allowedDomains []string
}

// New creates a Validator for the given allowed domains. A hostname
// passes when it equals a domain or is a subdomain of one.
func New(allowedDomains []string) *Validator {
	domains := make([]string, len(allowedDomains))
	for i, d := range allowedDomains {
		domains[i] = strings.ToLower(strings.TrimSpace(d))
	}
	return &Validator{allowedDomains: domains}
}

// Validate reports whether rawURL is a safe scrape target: HTTPS, an
// allowlisted hostname, and not a localhost or private-range address.
func (v *Validator) Validate(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		logger.Warn("rejected unparseable scrape URL", logger.Fields{"url": rawURL})
		return false
	}

	if u.Scheme != "https" {
		logger.Warn("rejected non-HTTPS scrape URL", logger.Fields{"url": rawURL})
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return false
	}

	allowed := false
	for _, domain := range v.allowedDomains {
		if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
			allowed = true
			break
		}
	}
	if !allowed {
		logger.Warn("rejected scrape URL outside allowlist", logger.Fields{
			"url":  rawURL,
			"host": hostname,
		})
		return false
	}

	if isPrivateHost(hostname) {
		logger.Warn("rejected scrape URL targeting internal address", logger.Fields{
			"url":  rawURL,
			"host": hostname,
		})
		return false
	}

	return true
}

// isPrivateHost matches localhost and the RFC 1918 ranges lexically.
func isPrivateHost(hostname string) bool {
	return hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		strings.HasPrefix(hostname, "192.168.") ||
		strings.HasPrefix(hostname, "10.") ||
		privateRange172.MatchString(hostname)
}
