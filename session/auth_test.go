package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	testCases := []struct {
		name     string
		handler  http.HandlerFunc
		assertFn func(t *testing.T, token string, err error)
	}{
		{
			name: "success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var payload map[string]string
				_ = json.NewDecoder(r.Body).Decode(&payload)
				if payload["user"] != "alice" || payload["password"] != "pw" {
					w.WriteHeader(http.StatusUnauthorized)
					w.Write([]byte(`{"status":false,"message":"bad credentials"}`))
					return
				}
				w.Write([]byte(`{"status":true,"data":{"token":"tok-123"}}`))
			},
			assertFn: func(t *testing.T, token string, err error) {
				require.NoError(t, err)
				assert.Equal(t, "tok-123", token)
			},
		},
		{
			name: "rejected",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"status":false,"message":"bad credentials"}`))
			},
			assertFn: func(t *testing.T, token string, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "bad credentials")
			},
		},
		{
			name: "empty token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":true,"data":{}}`))
			},
			assertFn: func(t *testing.T, token string, err error) {
				assert.Error(t, err)
			},
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("<html>"))
			},
			assertFn: func(t *testing.T, token string, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "502")
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			srv := httptest.NewServer(testCase.handler)
			defer srv.Close()

			token, err := Authenticate(context.Background(), srv.Client(), srv.URL, "alice", "pw")
			testCase.assertFn(t, token, err)
		})
	}
}
