// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DSNError classifies why [ParseDSN] rejected an endpoint descriptor string.
type DSNError string

const (
	// ErrMalformedDescriptor means the string was not a valid URI.
	ErrMalformedDescriptor DSNError = "malformed_descriptor"
	// ErrMissingCredentials means the userinfo (public key) was absent.
	ErrMissingCredentials DSNError = "missing_credentials"
	// ErrMissingHost means the host component was empty.
	ErrMissingHost DSNError = "missing_host"
	// ErrMissingProject means the trailing path segment (project id) was empty.
	ErrMissingProject DSNError = "missing_project"
)

// Error implements the error interface.
func (e DSNError) Error() string {
	return "beacon: dsn: " + string(e)
}

// DSN is an immutable, parsed endpoint descriptor.
//
// Construct one with [ParseDSN]. The zero value is not a valid DSN.
type DSN struct {
	Scheme    string
	PublicKey string
	SecretKey string // optional, empty if absent
	Host      string
	Port      string // optional, empty if absent
	Path      string // optional path prefix, without leading/trailing slash
	ProjectID string

	raw string
}

// ParseDSN parses an endpoint descriptor of the form
// "{scheme}://{public_key}[:{secret_key}]@{host}[:{port}]/[{path}/]{project_id}".
func ParseDSN(s string) (*DSN, error) {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedDescriptor, s)
	}

	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingCredentials, s)
	}
	publicKey := u.User.Username()
	secretKey, _ := u.User.Password()

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingHost, s)
	}
	port := u.Port()

	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingProject, s)
	}
	idx := strings.LastIndex(trimmed, "/")
	path := ""
	project := trimmed
	if idx >= 0 {
		path = trimmed[:idx]
		project = trimmed[idx+1:]
	}
	if project == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingProject, s)
	}

	return &DSN{
		Scheme:    u.Scheme,
		PublicKey: publicKey,
		SecretKey: secretKey,
		Host:      host,
		Port:      port,
		Path:      path,
		ProjectID: project,
		raw:       s,
	}, nil
}

// isIPv6 reports whether host looks like a bare (unbracketed) IPv6 address,
// i.e. contains a colon. IPv4 and DNS names never contain a colon.
func isIPv6(host string) bool {
	return strings.Contains(host, ":")
}

// bracketHost brackets host if and only if it is an IPv6 literal.
func bracketHost(host string) string {
	if isIPv6(host) {
		return "[" + host + "]"
	}
	return host
}

// hostPort renders the "{host}[:{port}]" component, bracketing IPv6 hosts.
func (d *DSN) hostPort() string {
	h := bracketHost(d.Host)
	if d.Port != "" {
		h += ":" + d.Port
	}
	return h
}

// String reconstructs the original descriptor string, byte-exact modulo
// IPv6 bracketing of the host.
func (d *DSN) String() string {
	var b strings.Builder
	b.WriteString(d.Scheme)
	b.WriteString("://")
	b.WriteString(d.PublicKey)
	if d.SecretKey != "" {
		b.WriteByte(':')
		b.WriteString(d.SecretKey)
	}
	b.WriteByte('@')
	b.WriteString(d.hostPort())
	b.WriteByte('/')
	if d.Path != "" {
		b.WriteString(d.Path)
		b.WriteByte('/')
	}
	b.WriteString(d.ProjectID)
	return b.String()
}

// UploadURL derives the envelope ingestion URL:
// "{scheme}://{host}[:{port}]/{path}api/{project}/envelope/".
func (d *DSN) UploadURL() string {
	var b strings.Builder
	b.WriteString(d.Scheme)
	b.WriteString("://")
	b.WriteString(d.hostPort())
	b.WriteByte('/')
	if d.Path != "" {
		b.WriteString(d.Path)
		b.WriteByte('/')
	}
	b.WriteString("api/")
	b.WriteString(d.ProjectID)
	b.WriteString("/envelope/")
	return b.String()
}

// AuthMaterial returns the credentials carried by the descriptor.
func (d *DSN) AuthMaterial() (publicKey, secretKey string) {
	return d.PublicKey, d.SecretKey
}

// Validate checks that scheme, public key, host and project are all
// non-empty. [ParseDSN] already enforces these, so this is primarily
// useful for descriptors assembled programmatically.
func (d *DSN) Validate() error {
	switch {
	case d.Scheme == "":
		return errors.New("beacon: dsn: empty scheme")
	case d.PublicKey == "":
		return ErrMissingCredentials
	case d.Host == "":
		return ErrMissingHost
	case d.ProjectID == "":
		return ErrMissingProject
	}
	return nil
}
