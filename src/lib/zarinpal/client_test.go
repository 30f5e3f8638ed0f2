package zarinpal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newGateway(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{MerchantID: "merchant-1", BaseURL: srv.URL, Timeout: 500 * time.Millisecond})
	return c, srv
}

func TestRequestPaymentSuccess(t *testing.T) {
	var got gjson.Result
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, requestPath, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		got = gjson.ParseBytes(body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"code":100,"message":"Success","authority":"A00000000000000000000000000217885159","fee_type":"Merchant","fee":100},"errors":[]}`))
	})

	res := c.RequestPayment(context.Background(), PaymentRequest{
		Amount:      70000,
		CallbackURL: "http://localhost/callback",
		Description: "Workshop",
		Metadata:    map[string]any{"event_id": 7, "mobile": "09120000000"},
	})

	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, "A00000000000000000000000000217885159", res.Authority)
	assert.Equal(t, "merchant-1", got.Get("merchant_id").String())
	assert.Equal(t, int64(70000), got.Get("amount").Int())
	assert.Equal(t, "http://localhost/callback", got.Get("callback_url").String())
	assert.Equal(t, int64(7), got.Get("metadata.event_id").Int())
}

func TestRequestPaymentRejected(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"data":[],"errors":{"code":-9,"message":"The input params invalid, validation error.","validations":[]}}`))
	})

	res := c.RequestPayment(context.Background(), PaymentRequest{Amount: 10})

	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, int64(-9), res.Code)
	assert.Error(t, res.Err)
	assert.Empty(t, res.Authority)
}

func TestRequestPaymentTimeout(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	})

	res := c.RequestPayment(context.Background(), PaymentRequest{Amount: 10})

	assert.Equal(t, OutcomeTransportFailed, res.Outcome)
	assert.Error(t, res.Err)
}

func TestRequestPaymentConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewClient(Config{MerchantID: "m", BaseURL: url, Timeout: time.Second})

	res := c.RequestPayment(context.Background(), PaymentRequest{Amount: 10})

	assert.Equal(t, OutcomeTransportFailed, res.Outcome)
}

func TestRequestPaymentMalformedBody(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	})

	res := c.RequestPayment(context.Background(), PaymentRequest{Amount: 10})

	assert.Equal(t, OutcomeTransportFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrMalformedResponse)
}

func TestVerifyPayment(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		outcome  Outcome
		already  bool
		refID    string
		cardPan  string
		wantCode int64
	}{
		{
			name:     "fresh",
			body:     `{"data":{"code":100,"message":"Verified","card_hash":"1EBE3EBEBE35C7EC0F8D6EE4F2F859107A87822CA179BC9528767EA7B5489B69","card_pan":"502229******5995","ref_id":201,"fee_type":"Merchant","fee":0},"errors":[]}`,
			outcome:  OutcomeSuccess,
			refID:    "201",
			cardPan:  "502229******5995",
			wantCode: 100,
		},
		{
			name:     "already verified",
			body:     `{"data":{"code":101,"message":"Verified","card_pan":"502229******5995","ref_id":201},"errors":[]}`,
			outcome:  OutcomeSuccess,
			already:  true,
			refID:    "201",
			cardPan:  "502229******5995",
			wantCode: 101,
		},
		{
			name:     "rejected",
			body:     `{"data":[],"errors":{"code":-51,"message":"Session is not valid, session is not active paid try."}}`,
			outcome:  OutcomeRejected,
			wantCode: -51,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, verifyPath, r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				req := gjson.ParseBytes(body)
				assert.Equal(t, "A1", req.Get("authority").String())
				assert.Equal(t, int64(70000), req.Get("amount").Int())
				w.Write([]byte(tc.body))
			})

			res := c.VerifyPayment(context.Background(), 70000, "A1")

			assert.Equal(t, tc.outcome, res.Outcome)
			assert.Equal(t, tc.already, res.AlreadyVerified)
			assert.Equal(t, tc.refID, res.RefID)
			assert.Equal(t, tc.cardPan, res.CardPan)
			assert.Equal(t, tc.wantCode, res.Code)
		})
	}
}

func TestStartPayURL(t *testing.T) {
	assert.Equal(t, "https://sandbox.zarinpal.com/pg/StartPay/A1", NewClient(Config{Sandbox: true}).StartPayURL("A1"))
	assert.Equal(t, "https://payment.zarinpal.com/pg/StartPay/A1", NewClient(Config{}).StartPayURL("A1"))
}
