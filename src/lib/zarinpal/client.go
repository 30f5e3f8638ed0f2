// Package zarinpal talks to the Zarinpal v4 payment gateway.
//
// Every call returns a tri-state outcome. OutcomeRejected is a permanent verdict from the
// gateway for that authority, OutcomeTransportFailed means the gateway could not be reached
// or answered with something that is not a gateway envelope.
package zarinpal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	SandboxBaseURL    = "https://sandbox.zarinpal.com"
	ProductionBaseURL = "https://payment.zarinpal.com"

	requestPath  = "/pg/v4/payment/request.json"
	verifyPath   = "/pg/v4/payment/verify.json"
	startPayPath = "/pg/StartPay/"

	CodeSuccess         int64 = 100
	CodeAlreadyVerified int64 = 101

	DefaultTimeout = 15 * time.Second
)

var ErrMalformedResponse = errors.New("malformed gateway response")

type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeRejected
	OutcomeTransportFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransportFailed:
		return "transport_failed"
	default:
		return "unknown"
	}
}

type Config struct {
	MerchantID string
	Sandbox    bool
	// BaseURL overrides the sandbox/production switch.
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	merchantID string
	baseURL    string
	http       *resty.Client
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = ProductionBaseURL
		if cfg.Sandbox {
			baseURL = SandboxBaseURL
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	return &Client{
		merchantID: cfg.MerchantID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       httpClient,
	}
}

type PaymentRequest struct {
	Amount      int64
	CallbackURL string
	Description string
	Metadata    map[string]any
}

type RequestResult struct {
	Outcome   Outcome
	Authority string
	Code      int64
	Message   string
	Err       error
}

type VerifyResult struct {
	Outcome         Outcome
	Code            int64
	RefID           string
	CardPan         string
	CardHash        string
	AlreadyVerified bool
	Message         string
	Err             error
}

type requestBody struct {
	MerchantID  string         `json:"merchant_id"`
	Amount      int64          `json:"amount"`
	CallbackURL string         `json:"callback_url"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type verifyBody struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

func (c *Client) RequestPayment(ctx context.Context, req PaymentRequest) RequestResult {
	env, err := c.post(ctx, requestPath, requestBody{
		MerchantID:  c.merchantID,
		Amount:      req.Amount,
		CallbackURL: req.CallbackURL,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return RequestResult{Outcome: OutcomeTransportFailed, Err: err}
	}
	code, message := envelopeCode(env)
	authority := env.Get("data.authority").String()
	if code != CodeSuccess || authority == "" {
		return RequestResult{
			Outcome: OutcomeRejected,
			Code:    code,
			Message: message,
			Err:     fmt.Errorf("gateway rejected payment request: code=%d %s", code, message),
		}
	}
	return RequestResult{Outcome: OutcomeSuccess, Authority: authority, Code: code, Message: message}
}

func (c *Client) VerifyPayment(ctx context.Context, amount int64, authority string) VerifyResult {
	env, err := c.post(ctx, verifyPath, verifyBody{
		MerchantID: c.merchantID,
		Amount:     amount,
		Authority:  authority,
	})
	if err != nil {
		return VerifyResult{Outcome: OutcomeTransportFailed, Err: err}
	}
	code, message := envelopeCode(env)
	if code != CodeSuccess && code != CodeAlreadyVerified {
		return VerifyResult{
			Outcome: OutcomeRejected,
			Code:    code,
			Message: message,
			Err:     fmt.Errorf("gateway rejected verification: code=%d %s", code, message),
		}
	}
	data := env.Get("data")
	return VerifyResult{
		Outcome:         OutcomeSuccess,
		Code:            code,
		RefID:           data.Get("ref_id").String(),
		CardPan:         data.Get("card_pan").String(),
		CardHash:        data.Get("card_hash").String(),
		AlreadyVerified: code == CodeAlreadyVerified,
		Message:         message,
	}
}

func (c *Client) StartPayURL(authority string) string {
	return c.baseURL + startPayPath + authority
}

func (c *Client) post(ctx context.Context, path string, body any) (gjson.Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.baseURL + path)
	if err != nil {
		return gjson.Result{}, err
	}
	raw := resp.Body()
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: http %d", ErrMalformedResponse, resp.StatusCode())
	}
	env := gjson.ParseBytes(raw)
	if !env.Get("data").Exists() && !env.Get("errors").Exists() {
		return gjson.Result{}, fmt.Errorf("%w: http %d", ErrMalformedResponse, resp.StatusCode())
	}
	return env, nil
}

// envelopeCode prefers data.code and falls back to errors.code, which is where the gateway puts
// validation failures.
func envelopeCode(env gjson.Result) (int64, string) {
	if code := env.Get("data.code"); code.Exists() {
		return code.Int(), env.Get("data.message").String()
	}
	if code := env.Get("errors.code"); code.Exists() {
		return code.Int(), env.Get("errors.message").String()
	}
	return 0, env.Get("errors").Raw
}
