package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

const maxErrorBody = 4 << 10

// Result of a token exchange. RefreshToken is empty unless the server
// rotated it.
type Result struct {
	AccessToken  string
	RefreshToken string
}

type Exchanger interface {
	Exchange(ctx context.Context, refreshToken string) (Result, error)
}

// StatusError is a non-2xx answer from the token endpoint other than 401.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("token endpoint returned %d: %s", e.StatusCode, e.Body)
}

type exchangeRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type exchangeResponse struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// HTTPExchanger posts the refresh token to a token endpoint. The client must
// not be one that authenticates requests itself.
type HTTPExchanger struct {
	client *http.Client
	url    string
}

func NewHTTPExchanger(client *http.Client, url string) *HTTPExchanger {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPExchanger{client: client, url: url}
}

func (e *HTTPExchanger) Exchange(ctx context.Context, refreshToken string) (Result, error) {
	payload, err := json.Marshal(exchangeRequest{RefreshToken: refreshToken})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return Result{}, common.ErrRefreshRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Result{}, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	var out exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("failed to decode token response: %w", err)
	}

	token := out.IDToken
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		return Result{}, errors.New("token response has no access token")
	}
	return Result{AccessToken: token, RefreshToken: out.RefreshToken}, nil
}
