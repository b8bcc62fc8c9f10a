// Package auth attaches the Authorization header to outbound requests.
//
// Two mutually exclusive schemes exist across deployment revisions: Bearer
// (opaque token from login) and Basic (username:secret re-encoded on every
// request). Missing credential material never fails a request locally; the
// request goes out unauthenticated and the server's response is the failure
// signal.
package auth

import (
	"net/http"
	"strings"

	"barpoints/config"
	"barpoints/models"

	log "github.com/sirupsen/logrus"
)

// SessionFunc returns the current session, or nil when logged out.
type SessionFunc func() *models.Session

// Transport is an http.RoundTripper that decorates requests with the active
// scheme's Authorization header. Login and registration endpoints are never
// authenticated, regardless of what material is available.
type Transport struct {
	Scheme  config.AuthScheme
	Session SessionFunc
	Base    http.RoundTripper
}

// NewTransport builds a Transport over the default http transport.
func NewTransport(scheme config.AuthScheme, session SessionFunc) *Transport {
	return &Transport{Scheme: scheme, Session: session}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Header.Set("Content-Type", "application/json")

	if isAuthEndpoint(req.URL.Path) {
		log.WithField("path", req.URL.Path).Debug("Skipping Authorization header for auth endpoint")
		return t.base().RoundTrip(out)
	}

	sess := t.session()
	switch t.Scheme {
	case config.AuthSchemeBasic:
		if sess != nil && sess.Username != "" && sess.CredentialSecret != "" {
			out.SetBasicAuth(sess.Username, sess.CredentialSecret)
		} else {
			log.WithField("path", req.URL.Path).Debug("No stored credentials, sending unauthenticated request")
		}
	default: // bearer
		if sess != nil && sess.Token != "" {
			out.Header.Set("Authorization", "Bearer "+sess.Token)
		} else {
			log.WithField("path", req.URL.Path).Debug("No token found, sending unauthenticated request")
		}
	}

	return t.base().RoundTrip(out)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) session() *models.Session {
	if t.Session == nil {
		return nil
	}
	return t.Session()
}

// isAuthEndpoint reports whether the path belongs to login or registration,
// matching by substring so both versioned and unversioned revisions hit.
func isAuthEndpoint(path string) bool {
	p := strings.ToLower(path)
	return strings.Contains(p, "/auth/login") || strings.Contains(p, "/auth/register")
}
