package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable means the verification service itself could not be reached
// or errored; distinct from a rejected token so callers can answer 500
// instead of 400.
var ErrUnavailable = errors.New("captcha service unavailable")

// Verifier decides whether a challenge token proves a human caller.
// Verify returns (false, nil) for a rejected token and ErrUnavailable when
// the decision could not be made.
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// Recaptcha calls Google's siteverify endpoint.
type Recaptcha struct {
	Secret    string
	VerifyURL string
	Client    *http.Client
}

func NewRecaptcha(secret, verifyURL string, timeout time.Duration) *Recaptcha {
	return &Recaptcha{
		Secret:    secret,
		VerifyURL: verifyURL,
		Client:    &http.Client{Timeout: timeout},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (r *Recaptcha) Verify(ctx context.Context, token string) (bool, error) {
	form := url.Values{}
	form.Set("secret", r.Secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, ErrUnavailable
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.Client.Do(req)
	if err != nil {
		return false, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, ErrUnavailable
	}
	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, ErrUnavailable
	}
	return out.Success, nil
}

// Static is a deterministic Verifier for tests and local development.
type Static struct {
	OK  bool
	Err error
}

func (s Static) Verify(context.Context, string) (bool, error) { return s.OK, s.Err }
