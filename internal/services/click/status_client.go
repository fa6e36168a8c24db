package click

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"paywall_backend/internal/models"
)

var (
	// ErrNotConfigured - нет ключей Click, перепроверка пропускается (деградированный режим)
	ErrNotConfigured = errors.New("click status api is not configured")
	// ErrUnavailable - таймаут, сеть или 5xx. Транзакцию нельзя помечать failed.
	ErrUnavailable = errors.New("click status api unavailable")
)

const statusDateLayout = "2006-01-02"

// StatusResponse - ответ /payment/status_by_mti. Без error_code ответ
// подтверждением не считается.
type StatusResponse struct {
	ErrorCode     *int   `json:"error_code"`
	ErrorNote     string `json:"error_note"`
	PaymentID     int64  `json:"payment_id"`
	PaymentStatus *int   `json:"payment_status"`
}

// Outcome трактует ответ: оплачено или причина отказа
func (r *StatusResponse) Outcome() (paid bool, reason string) {
	if r.ErrorCode == nil || *r.ErrorCode != 0 {
		return false, models.ReasonClickVerifyFail
	}
	if r.PaymentStatus != nil && *r.PaymentStatus != 1 {
		return false, models.ReasonClickNotPaid
	}
	return true, ""
}

// Payload - снимок ответа для журнала аудита
func (r *StatusResponse) Payload() models.VerificationPayload {
	p := models.VerificationPayload{
		ErrorCode: r.Code(),
		ErrorNote: r.ErrorNote,
		PaymentID: r.PaymentID,
	}
	if r.PaymentStatus != nil {
		p.PaymentStatus = *r.PaymentStatus
	}
	return p
}

// Code - error_code ответа, 0 если поле не пришло
func (r *StatusResponse) Code() int {
	if r.ErrorCode == nil {
		return 0
	}
	return *r.ErrorCode
}

// StatusChecker - авторитетный pull-источник статуса платежа
type StatusChecker interface {
	Configured() bool
	CheckStatus(ctx context.Context, merchantTransID string, createdAt time.Time) (*StatusResponse, error)
}

type StatusConfig struct {
	ServiceID      string
	MerchantUserID string
	SecretKey      string
	BaseURL        string
	Timeout        time.Duration
}

type StatusClient struct {
	cfg  StatusConfig
	HTTP *http.Client
	Now  func() time.Time
}

func NewStatusClient(cfg StatusConfig) *StatusClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.click.uz"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &StatusClient{
		cfg:  cfg,
		HTTP: &http.Client{Timeout: cfg.Timeout},
		Now:  time.Now,
	}
}

func (c *StatusClient) Configured() bool {
	return c.cfg.ServiceID != "" && c.cfg.MerchantUserID != "" && c.cfg.SecretKey != ""
}

// AuthHeader - "{merchant_user_id}:{sha1(timestamp+secret)}:{timestamp}"
func (c *StatusClient) AuthHeader(timestamp int64) string {
	ts := strconv.FormatInt(timestamp, 10)
	sum := sha1.Sum([]byte(ts + c.cfg.SecretKey))
	return fmt.Sprintf("%s:%s:%s", c.cfg.MerchantUserID, hex.EncodeToString(sum[:]), ts)
}

func (c *StatusClient) CheckStatus(ctx context.Context, merchantTransID string, createdAt time.Time) (*StatusResponse, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v2/merchant/payment/status_by_mti/%s/%s/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(c.cfg.ServiceID),
		url.PathEscape(merchantTransID),
		createdAt.UTC().Format(statusDateLayout),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Auth", c.AuthHeader(c.Now().Unix()))

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= http.StatusInternalServerError, res.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: http %d", ErrUnavailable, res.StatusCode)
	case res.StatusCode < 200 || res.StatusCode >= 300:
		// 4xx: Click отказал (неверный Auth, нет платежа). Это отказ, а не подтверждение.
		return &StatusResponse{ErrorNote: fmt.Sprintf("http %d", res.StatusCode)}, nil
	}

	var resp StatusResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decode response (http %d): %v", ErrUnavailable, res.StatusCode, err)
	}
	if resp.ErrorCode == nil && resp.ErrorNote == "" {
		resp.ErrorNote = "error_code missing"
	}
	return &resp, nil
}
