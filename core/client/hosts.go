package client

import (
	"regexp"
	"strings"
)

// Hosts may be IPv4 addresses in dotted-decimal notation or RFC-1123 style
// hostnames: labels of letters, digits, hyphens and underscores, at most 253
// characters overall, an optional trailing dot, and a TLD label that is not
// all-numeric.
var (
	ipv4Pattern = regexp.MustCompile(
		`^(25[0-5]|2[0-4][0-9]|[0-1]?[0-9][0-9]?)\.(25[0-5]|2[0-4][0-9]|[0-1]?[0-9][0-9]?)\.(25[0-5]|2[0-4][0-9]|[0-1]?[0-9][0-9]?)\.(25[0-5]|2[0-4][0-9]|[0-1]?[0-9][0-9]?)$`)
	numericLabelPattern = regexp.MustCompile(`^[0-9]+$`)
	hostnamePattern     = regexp.MustCompile(
		`^(([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9_\-]*[a-zA-Z0-9])\.)*([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9_\-]*[A-Za-z0-9])$`)
)

// ValidHost reports whether host is a usable NTP server name.
func ValidHost(host string) bool {
	return validIPv4(host) || validHostname(host)
}

func validIPv4(host string) bool {
	return ipv4Pattern.MatchString(host)
}

func validHostname(host string) bool {
	host = strings.TrimSuffix(host, ".")
	if len(host) == 0 || len(host) > 253 {
		return false
	}
	labels := strings.Split(host, ".")
	if numericLabelPattern.MatchString(labels[len(labels)-1]) {
		return false
	}
	return hostnamePattern.MatchString(host)
}
