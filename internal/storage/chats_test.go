package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFieldsStrictRejectsUnknown(t *testing.T) {
	_, err := NormalizeFields(map[string]interface{}{
		"coin_id":  "bitcoin",
		"position": 1.0, // 未知字段
	}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position")
}

func TestNormalizeFieldsLenientDropsUnknown(t *testing.T) {
	payload, err := NormalizeFields(map[string]interface{}{
		"coin_id":  "bitcoin",
		"position": 1.0,
	}, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"coin_id": "bitcoin"}, payload)
}

func TestNormalizeFieldsClampsPercentages(t *testing.T) {
	payload, err := NormalizeFields(map[string]interface{}{
		"take_profit_pct": 120.0,
		"stop_loss_pct":   0.01,
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 50.0, payload["take_profit_pct"])
	assert.Equal(t, 0.2, payload["stop_loss_pct"])
}

func TestNormalizeFieldsAcceptsIntPercent(t *testing.T) {
	payload, err := NormalizeFields(map[string]interface{}{
		"take_profit_pct": 3,
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 3.0, payload["take_profit_pct"])
}

func TestNormalizeFieldsRejectsNonNumericPercent(t *testing.T) {
	_, err := NormalizeFields(map[string]interface{}{
		"stop_loss_pct": "five",
	}, true)
	assert.Error(t, err)
}

func TestNormalizeFieldsAllowedSet(t *testing.T) {
	entry := 101.5
	payload, err := NormalizeFields(map[string]interface{}{
		"coin_id":        "dogwifcoin",
		"trading_symbol": "WIF-USDT",
		"mode":           "aggressive",
		"precision_on":   true,
		"alerts_on":      false,
		"entry_price":    &entry,
	}, true)
	require.NoError(t, err)
	assert.Len(t, payload, 6)
}

func TestNormalizeFieldsRejectsUnknownMode(t *testing.T) {
	_, err := NormalizeFields(map[string]interface{}{"mode": "yolo"}, true)
	assert.Error(t, err)

	payload, err := NormalizeFields(map[string]interface{}{"mode": "conservative"}, true)
	require.NoError(t, err)
	assert.Equal(t, "conservative", payload["mode"])
}

func TestClampPct(t *testing.T) {
	assert.Equal(t, 0.2, clampPct(0.0))
	assert.Equal(t, 50.0, clampPct(99.0))
	assert.Equal(t, 2.5, clampPct(2.5))
}
