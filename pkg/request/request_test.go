package request

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/ft", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"no token"}`))

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"identities": r.URL.Query()["identity"], "ft": 42})
	})

	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		login, pass, _ := r.BasicAuth()

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"method": r.Method,
			"type":   r.Header.Get("Content-Type"),
			"login":  login,
			"pass":   pass,
			"body":   body,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestGetWithToken(t *testing.T) {
	srv := server(t)

	var res struct {
		Identities []string `json:"identities"`
		FT         int64    `json:"ft"`
	}

	err := New(nil, srv.URL+"/", nil).Path("/ft").Token("tok").Arg("identity", "alice", "", "0xalice").Do(context.Background(), &res)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "0xalice"}, res.Identities)
	assert.Equal(t, int64(42), res.FT)
}

func TestApiError(t *testing.T) {
	srv := server(t)

	err := New(srv.Client(), srv.URL, nil).Path("/ft").Do(context.Background(), nil)
	require.Error(t, err)

	var apiErr *ApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Kind)
	assert.Equal(t, "no token", apiErr.Message)

	err = New(srv.Client(), srv.URL, nil).Path("/missing").Do(context.Background(), nil)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestPostWithBasicAuth(t *testing.T) {
	srv := server(t)

	var res map[string]any

	err := New(srv.Client(), srv.URL, nil).Path("/echo").Auth("alice", "pw").
		Post(map[string]any{"weight": 3}).Do(context.Background(), &res)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, res["method"])
	assert.Equal(t, "application/json", res["type"])
	assert.Equal(t, "alice", res["login"])
	assert.Equal(t, "pw", res["pass"])
	assert.Equal(t, map[string]any{"weight": float64(3)}, res["body"])

	err = New(srv.Client(), srv.URL, nil).Path("/echo").Put(nil).Do(context.Background(), &res)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, res["method"])
	assert.Equal(t, "", res["login"])
}
