package line

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Message is any outbound message object.
type Message map[string]any

// Action is a template or flex action.
type Action map[string]any

// Text builds a text message.
func Text(text string) Message {
	return Message{"type": "text", "text": text}
}

// URIAction opens uri when tapped.
func URIAction(label, uri string) Action {
	return Action{"type": "uri", "label": label, "uri": uri}
}

// PostbackButton sends data back to the webhook when tapped.
func PostbackButton(label, data, displayText string) Action {
	a := Action{"type": "postback", "label": label, "data": data}
	if displayText != "" {
		a["displayText"] = displayText
	}
	return a
}

// Buttons builds a buttons template message.
func Buttons(altText, text string, actions ...Action) Message {
	return Message{
		"type":    "template",
		"altText": altText,
		"template": map[string]any{
			"type":    "buttons",
			"text":    text,
			"actions": actions,
		},
	}
}

// OrderSummary is the data rendered into a confirmation bubble.
type OrderSummary struct {
	OrderNumber   string
	CustomerName  string
	CustomerPhone string
	Total         decimal.Decimal
	ItemCount     int
}

func row(label, value string, extra map[string]any) map[string]any {
	v := map[string]any{"type": "text", "text": value, "size": "sm", "wrap": true, "flex": 5}
	for k, x := range extra {
		v[k] = x
	}
	return map[string]any{
		"type":   "box",
		"layout": "baseline",
		"contents": []any{
			map[string]any{"type": "text", "text": label, "size": "sm", "color": "#666666", "flex": 2},
			v,
		},
	}
}

// OrderConfirmationFlex renders the order confirmation bubble.
func OrderConfirmationFlex(s OrderSummary) Message {
	body := []any{
		row("ออเดอร์:", "#"+s.OrderNumber, map[string]any{"weight": "bold"}),
		row("ชื่อ:", s.CustomerName, nil),
		row("เบอร์:", s.CustomerPhone, nil),
	}
	if s.ItemCount > 0 {
		body = append(body, row("รายการ:", fmt.Sprintf("%d รายการ", s.ItemCount), nil))
	}
	body = append(body,
		row("ยอดรวม:", FormatBaht(s.Total), map[string]any{"weight": "bold", "color": "#FF6B35"}),
		map[string]any{"type": "separator", "margin": "lg"},
		map[string]any{
			"type":   "text",
			"text":   "✨ ขอบคุณที่ใช้บริการ Tenzai Sushi\nทางร้านจะติดต่อกลับเร็วๆ นี้ค่ะ",
			"size":   "sm",
			"color":  "#666666",
			"wrap":   true,
			"margin": "lg",
		},
	)

	return Message{
		"type":    "flex",
		"altText": fmt.Sprintf("ยืนยันออเดอร์ #%s", s.OrderNumber),
		"contents": map[string]any{
			"type": "bubble",
			"header": map[string]any{
				"type":            "box",
				"layout":          "vertical",
				"backgroundColor": "#FFF8F3",
				"contents": []any{
					map[string]any{"type": "text", "text": "🎉 ยืนยันการสั่งอาหาร", "weight": "bold", "color": "#FF6B35", "size": "lg"},
				},
			},
			"body": map[string]any{
				"type":     "box",
				"layout":   "vertical",
				"contents": body,
			},
		},
	}
}

// FormatBaht renders an amount as whole baht with thousands separators.
func FormatBaht(amount decimal.Decimal) string {
	whole := amount.Round(0).StringFixed(0)
	neg := false
	if len(whole) > 0 && whole[0] == '-' {
		neg = true
		whole = whole[1:]
	}
	out := make([]byte, 0, len(whole)+len(whole)/3)
	for i := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, whole[i])
	}
	if neg {
		return "-" + string(out) + " บาท"
	}
	return string(out) + " บาท"
}
