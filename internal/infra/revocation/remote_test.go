package revocation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	httpclient "github.com/astro-web3/edge-auth-gateway/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteChecker_IsRevoked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultCheckPath, r.URL.Path)

		var body checkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(checkResponse{Revoked: body.Token == "logged-out"})
	}))
	defer srv.Close()

	checker := NewRemoteChecker(httpclient.New(httpclient.Config{BaseURL: srv.URL}), RemoteConfig{})

	revoked, err := checker.IsRevoked(context.Background(), "logged-out")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = checker.IsRevoked(context.Background(), "still-good")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRemoteChecker_NonOKIsFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	checker := NewRemoteChecker(httpclient.New(httpclient.Config{BaseURL: srv.URL}), RemoteConfig{CheckPath: "/custom"})

	revoked, err := checker.IsRevoked(context.Background(), "token")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.False(t, revoked)
}

func TestRemoteChecker_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	checker := NewRemoteChecker(httpclient.New(httpclient.Config{BaseURL: url}), RemoteConfig{})

	_, err := checker.IsRevoked(context.Background(), "token")
	assert.Error(t, err)
}

func TestRemoteChecker_SendsServiceToken(t *testing.T) {
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(checkResponse{})
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Config{BaseURL: srv.URL})

	_, err := NewRemoteChecker(client, RemoteConfig{ServiceToken: "svc-secret"}).IsRevoked(context.Background(), "t")
	require.NoError(t, err)
	_, err = NewRemoteChecker(client, RemoteConfig{}).IsRevoked(context.Background(), "t")
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer svc-secret", ""}, auth)
}
