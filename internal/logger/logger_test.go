package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_AddsPaymentFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("production", &buf)
	t.Cleanup(func() { Init("development") })

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithPrincipalRef(ctx, "777")
	ctx = WithTransactionParam(ctx, "abc123")

	CtxInfo(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "777", entry["principal_ref"])
	assert.Equal(t, "abc123", entry["transaction_param"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestPaymentLog_WarnsOnError(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("production", &buf)
	t.Cleanup(func() { Init("development") })

	PaymentLog("webhook", "abc123", "failed", errors.New("amount_mismatch"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "amount_mismatch", entry["error"])
	assert.Equal(t, "webhook", entry["source"])
}
