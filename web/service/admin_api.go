package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/authpanel/authpanel/web/console"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// ErrUnauthorized is returned when the admin API rejects the bearer token.
var ErrUnauthorized = errors.New("admin api rejected the token")

// StatusError reports an unexpected HTTP status from the admin API.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

const maxErrorBody = 256

// AdminAPIService talks to the remote admin API.
type AdminAPIService struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

var _ console.AdminAPI = (*AdminAPIService)(nil)

// NewAdminAPIService creates a client for the admin API rooted at baseURL.
func NewAdminAPIService(baseURL string, timeout time.Duration) *AdminAPIService {
	return &AdminAPIService{
		baseURL: baseURL,
		timeout: timeout,
		client: &fasthttp.Client{
			Name:                "authpanel",
			MaxIdleConnDuration: time.Minute,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
	}
}

type loginResponse struct {
	Token string `json:"token"`
}

type authorizationRequest struct {
	IsAuthorized bool `json:"is_authorized"`
}

// Login exchanges admin credentials for a token. Only a 200 answer counts.
func (s *AdminAPIService) Login(ctx context.Context, creds console.Credentials) (string, error) {
	var out loginResponse
	status, body, err := s.do(ctx, fasthttp.MethodPost, "/admin/super-admin-login", "", creds, &out)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if status != http.StatusOK {
		return "", &StatusError{Op: "login", StatusCode: status, Body: body}
	}
	if out.Token == "" {
		return "", errors.New("login: response carries no token")
	}
	return out.Token, nil
}

// ListUsers fetches every user record in server order.
func (s *AdminAPIService) ListUsers(ctx context.Context, token string) ([]console.UserRecord, error) {
	var users []console.UserRecord
	status, body, err := s.do(ctx, fasthttp.MethodGet, "/admin/all-users", token, nil, &users)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if err := checkStatus("list users", status, body); err != nil {
		return nil, err
	}
	if users == nil {
		users = []console.UserRecord{}
	}
	return users, nil
}

// SetAuthorization updates the is_authorized flag of one user.
func (s *AdminAPIService) SetAuthorization(ctx context.Context, token string, id console.UserID, authorized bool) error {
	path := "/admin/update-authorization/" + url.PathEscape(id.String())
	status, body, err := s.do(ctx, fasthttp.MethodPut, path, token, authorizationRequest{IsAuthorized: authorized}, nil)
	if err != nil {
		return fmt.Errorf("update authorization: %w", err)
	}
	return checkStatus("update authorization", status, body)
}

// Ping reports whether the admin API answers HTTP at all.
func (s *AdminAPIService) Ping(ctx context.Context) error {
	_, _, err := s.do(ctx, fasthttp.MethodGet, "/", "", nil, nil)
	return err
}

func checkStatus(op string, status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w (status %d)", op, ErrUnauthorized, status)
	case status < 200 || status > 299:
		return &StatusError{Op: op, StatusCode: status, Body: body}
	}
	return nil
}

// do performs one request. out is decoded only for 2xx answers; for other answers
// a trimmed body is returned for error messages.
func (s *AdminAPIService) do(ctx context.Context, method, path, token string, in, out any) (int, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+token)
	}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, "", err
		}
		req.Header.SetContentType("application/json")
		req.SetBodyRaw(data)
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := s.client.DoTimeout(req, resp, timeout); err != nil {
		return 0, "", err
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		body := resp.Body()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return status, string(body), nil
	}
	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return status, "", fmt.Errorf("decode response: %w", err)
		}
	}
	return status, "", nil
}
