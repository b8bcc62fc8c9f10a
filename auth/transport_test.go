package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"barpoints/config"
	"barpoints/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// record captures the headers the server actually saw.
type record struct {
	authorization string
	contentType   string
}

func roundTrip(t *testing.T, tr *Transport, path string) record {
	t.Helper()

	var rec record
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.authorization = r.Header.Get("Authorization")
		rec.contentType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	client := &http.Client{Transport: tr}
	resp, err := client.Get(srv.URL + path)
	require.NoError(t, err)
	resp.Body.Close()
	return rec
}

func sessionFunc(s *models.Session) SessionFunc {
	return func() *models.Session { return s }
}

func TestTransport_BearerAttachesToken(t *testing.T) {
	tr := NewTransport(config.AuthSchemeBearer, sessionFunc(&models.Session{
		UserID:   1,
		Username: "ana",
		Token:    "jwt-token",
	}))

	rec := roundTrip(t, tr, "/api/v1/users/1")
	assert.Equal(t, "Bearer jwt-token", rec.authorization)
	assert.Equal(t, "application/json", rec.contentType)
}

func TestTransport_AuthEndpointsNeverAuthenticated(t *testing.T) {
	sess := &models.Session{Username: "ana", Token: "jwt-token", CredentialSecret: "pw"}

	for _, scheme := range []config.AuthScheme{config.AuthSchemeBearer, config.AuthSchemeBasic} {
		for _, path := range []string{"/api/v1/auth/login", "/api/auth/login", "/api/v1/auth/register"} {
			rec := roundTrip(t, NewTransport(scheme, sessionFunc(sess)), path)
			assert.Empty(t, rec.authorization, "scheme %s path %s", scheme, path)
			assert.Equal(t, "application/json", rec.contentType)
		}
	}
}

func TestTransport_BearerMissingTokenProceedsUnauthenticated(t *testing.T) {
	tr := NewTransport(config.AuthSchemeBearer, sessionFunc(&models.Session{Username: "ana"}))

	rec := roundTrip(t, tr, "/api/v1/users/1")
	assert.Empty(t, rec.authorization, "missing material must not fail the request locally")
	assert.Equal(t, "application/json", rec.contentType)
}

func TestTransport_NilSessionProceedsUnauthenticated(t *testing.T) {
	tr := NewTransport(config.AuthSchemeBearer, sessionFunc(nil))

	rec := roundTrip(t, tr, "/api/bars")
	assert.Empty(t, rec.authorization)
	assert.Equal(t, "application/json", rec.contentType)
}

func TestTransport_BasicEncodesCredentialPair(t *testing.T) {
	tr := NewTransport(config.AuthSchemeBasic, sessionFunc(&models.Session{
		Username:         "ana",
		CredentialSecret: "s3cret",
		Token:            "ignored-token",
	}))

	rec := roundTrip(t, tr, "/api/v1/users/1")
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("ana:s3cret"))
	assert.Equal(t, want, rec.authorization, "basic scheme re-encodes credentials independent of any token")
}

func TestTransport_BasicMissingSecretProceedsUnauthenticated(t *testing.T) {
	tr := NewTransport(config.AuthSchemeBasic, sessionFunc(&models.Session{Username: "ana"}))

	rec := roundTrip(t, tr, "/api/v1/users/1")
	assert.Empty(t, rec.authorization)
	assert.Equal(t, "application/json", rec.contentType)
}
