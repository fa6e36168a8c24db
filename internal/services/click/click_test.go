package click

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"paywall_backend/internal/models"
	"paywall_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sampleParams() SignatureParams {
	return SignatureParams{
		ClickTransID:      "2210",
		ServiceID:         "12345",
		MerchantTransID:   "abc123",
		MerchantPrepareID: "1",
		Amount:            "50000",
		Action:            ActionPrepare,
		SignTime:          "2024-06-15 10:00:00",
	}
}

func TestSigner_RequestDigestFieldOrder(t *testing.T) {
	s := NewSigner("secret")
	p := sampleParams()

	assert.Equal(t, md5hex("221012345secretabc123500000"+"2024-06-15 10:00:00"), s.RequestDigest(p),
		"PREPARE подписывается без merchant_prepare_id")

	p.Action = ActionComplete
	assert.Equal(t, md5hex("221012345secretabc1231500001"+"2024-06-15 10:00:00"), s.RequestDigest(p),
		"COMPLETE включает merchant_prepare_id после merchant_trans_id")
}

func TestSigner_ResponseDigestAlwaysBindsPrepareID(t *testing.T) {
	s := NewSigner("secret")
	p := sampleParams()

	withID := s.ResponseDigest(p)
	p.MerchantPrepareID = "2"
	assert.NotEqual(t, withID, s.ResponseDigest(p))
	assert.NotEqual(t, s.RequestDigest(p), s.ResponseDigest(p))
}

func TestSigner_DigestIsPureAndFieldSensitive(t *testing.T) {
	s := NewSigner("secret")
	base := sampleParams()
	base.Action = ActionComplete
	digest := s.RequestDigest(base)

	assert.Equal(t, digest, s.RequestDigest(base), "одинаковый вход - одинаковая подпись")

	mutations := map[string]func(p *SignatureParams){
		"click_trans_id":      func(p *SignatureParams) { p.ClickTransID = "2211" },
		"service_id":          func(p *SignatureParams) { p.ServiceID = "12346" },
		"merchant_trans_id":   func(p *SignatureParams) { p.MerchantTransID = "abc124" },
		"merchant_prepare_id": func(p *SignatureParams) { p.MerchantPrepareID = "9" },
		"amount":              func(p *SignatureParams) { p.Amount = "40000" },
		"sign_time":           func(p *SignatureParams) { p.SignTime = "2024-06-15 10:00:01" },
	}
	for field, mutate := range mutations {
		p := base
		mutate(&p)
		assert.NotEqual(t, digest, s.RequestDigest(p), "изменение %s должно менять подпись", field)
	}

	assert.NotEqual(t, digest, NewSigner("other").RequestDigest(base), "секрет участвует в подписи")
}

func TestSigner_VerifyIsExact(t *testing.T) {
	s := NewSigner("secret")
	p := sampleParams()
	sign := s.RequestDigest(p)

	assert.True(t, s.Verify(p, sign))
	assert.False(t, s.Verify(p, strings.ToUpper(sign)), "регистр имеет значение")
	assert.False(t, s.Verify(p, ""))

	p.Amount = "50000.00"
	assert.False(t, s.Verify(p, sign), "сумма не нормализуется")
}

func TestVerifyWebhookSecret(t *testing.T) {
	assert.True(t, VerifyWebhookSecret("", "anything"), "пустой секрет выключает проверку")
	assert.True(t, VerifyWebhookSecret("s3cret", " s3cret "))
	assert.False(t, VerifyWebhookSecret("s3cret", "wrong"))
	assert.False(t, VerifyWebhookSecret("s3cret", ""))
}

func TestResultFor(t *testing.T) {
	cases := map[ResultCode]error{
		ResultSuccess:             nil,
		ResultSignFailed:          apperrors.ErrAuthenticationFailure("sign"),
		ResultIncorrectAmount:     apperrors.ErrIntegrityViolation("amount"),
		ResultActionNotFound:      apperrors.ErrInvalidOperation("payment", "action"),
		ResultAlreadyPaid:         apperrors.ErrAlreadySettled(),
		ResultTransactionNotFound: apperrors.ErrNotFound(nil, "payment", "missing"),
		ResultBadRequest:          apperrors.ErrMalformedRequest("field"),
		ResultCancelled:           apperrors.ErrInvalidStatus("payment", "cancelled"),
		ResultInternalError:       errors.New("db down"),
	}
	for want, err := range cases {
		assert.Equal(t, want, ResultFor(err), "ошибка %v", err)
		assert.NotEmpty(t, want.Note())
	}
	assert.Equal(t, ResultCancelled, ResultFor(apperrors.ErrUpstreamRejection(nil, "click")))
}

func TestPaymentLink(t *testing.T) {
	link := PaymentLink(LinkConfig{ServiceID: "1", MerchantID: "2", ReturnURL: "https://t.me/bot"}, "50000", "abc123", "")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "my.click.uz", u.Host)
	assert.Equal(t, "/services/pay", u.Path)
	q := u.Query()
	assert.Equal(t, "abc123", q.Get("transaction_param"))
	assert.Equal(t, "50000", q.Get("amount"))
	assert.False(t, q.Has("merchant_user_id"))

	param := NewTransactionParam()
	assert.Len(t, param, 32)
	assert.NotContains(t, param, "-")
}

func newStatusServer(t *testing.T, handler http.HandlerFunc) (*StatusClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewStatusClient(StatusConfig{
		ServiceID:      "12345",
		MerchantUserID: "777",
		SecretKey:      "secret",
		BaseURL:        srv.URL,
		Timeout:        time.Second,
	})
	client.Now = func() time.Time { return time.Unix(1718445600, 0) }
	return client, srv
}

func TestStatusClient_BuildsRequest(t *testing.T) {
	createdAt := time.Date(2024, 6, 15, 23, 30, 0, 0, time.FixedZone("UZT", 5*3600))

	client, _ := newStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/merchant/payment/status_by_mti/12345/abc123/2024-06-15", r.URL.Path)

		sum := sha1.Sum([]byte("1718445600secret"))
		assert.Equal(t, "777:"+hex.EncodeToString(sum[:])+":1718445600", r.Header.Get("Auth"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error_code":0,"error_note":"Success","payment_id":991,"payment_status":1}`))
	})

	resp, err := client.CheckStatus(context.Background(), "abc123", createdAt)
	require.NoError(t, err)

	paid, reason := resp.Outcome()
	assert.True(t, paid)
	assert.Empty(t, reason)
	assert.Equal(t, int64(991), resp.Payload().PaymentID)
}

func TestStatusClient_Outcomes(t *testing.T) {
	cases := []struct {
		status int
		body   string
		paid   bool
		reason string
	}{
		{http.StatusOK, `{"error_code":-5,"error_note":"not found"}`, false, models.ReasonClickVerifyFail},
		{http.StatusOK, `{"error_code":0,"payment_status":0}`, false, models.ReasonClickNotPaid},
		{http.StatusOK, `{"error_code":0}`, true, ""},
		{http.StatusOK, `{}`, false, models.ReasonClickVerifyFail},
		{http.StatusOK, `{"payment_status":1}`, false, models.ReasonClickVerifyFail},
		{http.StatusUnauthorized, `{"message":"unauthorized"}`, false, models.ReasonClickVerifyFail},
		{http.StatusNotFound, `{}`, false, models.ReasonClickVerifyFail},
		{http.StatusNotFound, `{"error_code":0,"payment_status":1}`, false, models.ReasonClickVerifyFail},
	}

	for _, tc := range cases {
		tc := tc
		client, _ := newStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		})

		resp, err := client.CheckStatus(context.Background(), "abc123", time.Now())
		require.NoError(t, err, tc.body)
		paid, reason := resp.Outcome()
		assert.Equal(t, tc.paid, paid, "%d %s", tc.status, tc.body)
		assert.Equal(t, tc.reason, reason, "%d %s", tc.status, tc.body)
		if tc.status != http.StatusOK {
			assert.Equal(t, "http "+strconv.Itoa(tc.status), resp.ErrorNote)
		}
	}
}

func TestStatusClient_TransientFailures(t *testing.T) {
	client, _ := newStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.CheckStatus(context.Background(), "abc123", time.Now())
	assert.ErrorIs(t, err, ErrUnavailable)

	throttled, _ := newStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err = throttled.CheckStatus(context.Background(), "abc123", time.Now())
	assert.ErrorIs(t, err, ErrUnavailable)

	slow, _ := newStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	slow.HTTP.Timeout = 50 * time.Millisecond
	_, err = slow.CheckStatus(context.Background(), "abc123", time.Now())
	assert.ErrorIs(t, err, ErrUnavailable, "таймаут - временная недоступность")

	garbage, _ := newStatusServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	_, err = garbage.CheckStatus(context.Background(), "abc123", time.Now())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStatusClient_NotConfigured(t *testing.T) {
	client := NewStatusClient(StatusConfig{})
	assert.False(t, client.Configured())

	_, err := client.CheckStatus(context.Background(), "abc123", time.Now())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
