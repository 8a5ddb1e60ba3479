package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/utils"
)

const telegramAPI = "https://api.telegram.org"

// TelegramService handles sending order notifications to Telegram.
type TelegramService struct {
	apiURL      string
	botToken    string
	adminChatID string
	client      *http.Client
	log         zerolog.Logger
}

// NewTelegramService creates a new TelegramService. An empty token or chat
// id turns every notification into a no-op.
func NewTelegramService(botToken, adminChatID string, logger zerolog.Logger) *TelegramService {
	return &TelegramService{
		apiURL:      telegramAPI,
		botToken:    botToken,
		adminChatID: adminChatID,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         logger,
	}
}

// WithAPIURL points the service at another Bot API host.
func (s *TelegramService) WithAPIURL(url string) *TelegramService {
	s.apiURL = strings.TrimRight(url, "/")
	return s
}

// Enabled reports whether notifications are configured.
func (s *TelegramService) Enabled() bool {
	return s.botToken != "" && s.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		s.log.Debug().Msg("telegram bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error().Err(err).Msg("telegram send failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Error().Int("status", resp.StatusCode).Msg("telegram unexpected status")
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		s.log.Debug().Msg("telegram admin chat not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// OrderNotification contains order data for a Telegram notification.
type OrderNotification struct {
	Reference     string
	Items         []OrderItemNotification
	Total         decimal.Decimal
	UserName      string
	UserPhone     string
	Address       string
	PaymentMethod string
	Paid          bool
}

// OrderItemNotification contains order item data.
type OrderItemNotification struct {
	Name     string
	Quantity int
	Price    float64
}

var paymentMethodText = map[string]string{
	"cod":    "Thanh toán khi nhận hàng",
	"paypal": "PayPal",
	"vnpay":  "VNPay",
	"qr":     "Chuyển khoản QR",
}

// NotifyNewOrder sends notification about a new order to the admin chat.
func (s *TelegramService) NotifyNewOrder(ctx context.Context, order OrderNotification) error {
	if !s.Enabled() {
		return nil
	}
	return s.SendToAdmin(ctx, FormatOrderMessage(order))
}

// FormatOrderMessage renders the admin chat message for an order.
func FormatOrderMessage(order OrderNotification) string {
	var itemsList strings.Builder
	for i, item := range order.Items {
		itemTotal := item.Price * float64(item.Quantity)
		itemsList.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.Name),
			item.Quantity,
			utils.FormatVNDFloat(item.Price),
			utils.FormatVNDFloat(itemTotal),
		))
	}

	method := paymentMethodText[order.PaymentMethod]
	if method == "" {
		method = order.PaymentMethod
	}

	statusText := "⏳ Chờ thanh toán"
	if order.Paid {
		statusText = "✅ Đã thanh toán"
	}

	message := fmt.Sprintf(`<b>🛒 ĐƠN HÀNG MỚI!</b>
<b>📋 Mã đơn:</b> %s
<b>👤 Khách hàng:</b> %s
<b>📞 Điện thoại:</b> %s
<b>🏠 Địa chỉ:</b> %s
<b>📦 Sản phẩm:</b>
%s
<b>💰 Tổng:</b> %s
<b>💳 Thanh toán:</b> %s
<b>📍 Trạng thái:</b> %s
━━━━━━━━━━━━━━━━━━`,
		html.EscapeString(order.Reference),
		html.EscapeString(order.UserName),
		html.EscapeString(order.UserPhone),
		html.EscapeString(order.Address),
		itemsList.String(),
		utils.FormatVND(order.Total),
		method,
		statusText,
	)

	return strings.TrimSpace(message)
}
