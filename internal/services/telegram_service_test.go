package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() OrderNotification {
	return OrderNotification{
		Reference:     "482913",
		Items:         []OrderItemNotification{{Name: "Trà <xanh>", Quantity: 2, Price: 50000}},
		Total:         decimal.NewFromInt(100000),
		UserName:      "An",
		UserPhone:     "0901234567",
		Address:       "Hàng Bạc, Hoàn Kiếm, Hà Nội",
		PaymentMethod: "cod",
	}
}

func TestFormatOrderMessage(t *testing.T) {
	msg := FormatOrderMessage(sampleOrder())

	assert.Contains(t, msg, "482913")
	assert.Contains(t, msg, "Trà &lt;xanh&gt;")
	assert.Contains(t, msg, "2 x 50.000 ₫ = 100.000 ₫")
	assert.Contains(t, msg, "Thanh toán khi nhận hàng")
	assert.Contains(t, msg, "Chờ thanh toán")
}

func TestNotifyNewOrderPostsToAdminChat(t *testing.T) {
	var got telegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramService("bot-token", "chat-1", zerolog.Nop()).WithAPIURL(srv.URL)
	require.NoError(t, s.NotifyNewOrder(context.Background(), sampleOrder()))

	assert.Equal(t, "/botbot-token/sendMessage", path)
	assert.Equal(t, "chat-1", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Contains(t, got.Text, "ĐƠN HÀNG MỚI")
}

func TestNotifyNewOrderDisabled(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	s := NewTelegramService("", "", zerolog.Nop()).WithAPIURL(srv.URL)
	assert.False(t, s.Enabled())
	require.NoError(t, s.NotifyNewOrder(context.Background(), sampleOrder()))
	assert.False(t, called)
}

func TestSendMessageBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewTelegramService("bot-token", "chat-1", zerolog.Nop()).WithAPIURL(srv.URL)
	assert.Error(t, s.SendToAdmin(context.Background(), "hello"))
}
