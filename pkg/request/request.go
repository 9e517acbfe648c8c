// Package request is a small fluent client for the rigs http api.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// ApiError is the error body the api returns for non 2xx responses.
type ApiError struct {
	Status  int    `json:"-"`
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *ApiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Kind)
	}

	return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Message)
}

type Request struct {
	client *http.Client
	base   string
	path   string
	method string
	token  string
	login  string
	passw  string
	body   any
	args   url.Values
	logger *slog.Logger
}

func New(c *http.Client, base string, logger *slog.Logger) *Request {
	if c == nil {
		c = http.DefaultClient
	}

	return &Request{client: c, base: strings.TrimSuffix(base, "/"), method: http.MethodGet, args: url.Values{}, logger: logger}
}

func (r *Request) Path(format string, a ...any) *Request {
	r.path = fmt.Sprintf(format, a...)

	return r
}

func (r *Request) Put(body any) *Request {
	r.method = http.MethodPut
	r.body = body

	return r
}

func (r *Request) Post(body any) *Request {
	r.method = http.MethodPost
	r.body = body

	return r
}

func (r *Request) Token(token string) *Request {
	r.token = token

	return r
}

func (r *Request) Auth(login, passw string) *Request {
	r.login = login
	r.passw = passw

	return r
}

// Arg adds a query argument, empty values are skipped.
func (r *Request) Arg(name string, values ...string) *Request {
	for _, v := range values {
		if v != "" {
			r.args.Add(name, v)
		}
	}

	return r
}

func (r *Request) build(ctx context.Context) (*http.Request, error) {
	var body io.Reader

	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, err
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.base+r.path, body)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch {
	case r.token != "":
		req.Header.Set("Authorization", "Bearer "+r.token)
	case r.login != "":
		req.SetBasicAuth(r.login, r.passw)
	}

	if len(r.args) > 0 {
		req.URL.RawQuery = r.args.Encode()
	}

	return req, nil
}

// Do runs the request and decodes a 2xx json body into obj when obj is not nil.
// Other statuses are returned as *ApiError.
func (r *Request) Do(ctx context.Context, obj any) error {
	req, err := r.build(ctx)
	if err != nil {
		return err
	}

	res, err := r.client.Do(req)
	if err != nil {
		r.log(slog.LevelInfo, req, "error", err.Error())

		return err
	}

	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		r.log(slog.LevelWarn, req, "status", res.StatusCode)

		apiErr := &ApiError{Status: res.StatusCode, Kind: http.StatusText(res.StatusCode)}
		_ = json.NewDecoder(res.Body).Decode(apiErr)
		apiErr.Status = res.StatusCode

		return apiErr
	}

	r.log(slog.LevelDebug, req, "status", res.StatusCode)

	if obj == nil {
		return nil
	}

	return json.NewDecoder(res.Body).Decode(obj)
}

func (r *Request) log(level slog.Level, req *http.Request, args ...any) {
	if r.logger == nil {
		return
	}

	r.logger.Log(req.Context(), level, fmt.Sprintf("%s %s", req.Method, req.URL.Path), args...)
}
