// Package assistant classifies chat messages and answers them from fixed
// replies or a chat model.
package assistant

import (
	"strings"
	"unicode/utf8"
)

// Intent is the classified purpose of a chat message.
type Intent string

const (
	IntentHours      Intent = "hours"
	IntentLocation   Intent = "location"
	IntentMenu       Intent = "menu"
	IntentPayment    Intent = "payment"
	IntentOrder      Intent = "order"
	IntentGreeting   Intent = "greeting"
	IntentAIComplex  Intent = "ai_complex"
	IntentAIFallback Intent = "ai_fallback"
)

// NeedsModel reports whether the intent is answered by the chat model.
func (i Intent) NeedsModel() bool {
	return i == IntentAIComplex || i == IntentAIFallback
}

// complexMinRunes is the length a message must exceed to count as a complex question.
const complexMinRunes = 15

var faqRules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentHours, []string{"เวลา", "เปิด", "ปิด", "โมง", "hours", "กี่โมง"}},
	{IntentLocation, []string{"ที่อยู่", "แอดเดรส", "location", "address", "อยู่ไหน", "ที่ไหน"}},
	{IntentMenu, []string{"ราคา", "เท่าไร", "price", "cost", "กี่บาท"}},
	{IntentPayment, []string{"ชำระ", "จ่าย", "payment", "pay", "โอน", "เงิน"}},
	{IntentOrder, []string{"สั่ง", "order", "โอเดอร์", "สั่งอาหาร"}},
}

var (
	restaurantKeywords  = []string{"เมนู", "อาหาร", "food", "menu", "sushi", "ซูชิ", "ข้าว", "น้ำ", "ของหวาน", "ทานเข้า", "กิน"}
	greetingKeywords    = []string{"สวัสดี", "hello", "hi", "ครับ", "ค่ะ", "หวัดดี"}
	interrogativeMarker = []string{"?", "ไหม", "มั้ย", "ได้ไหม", "อย่างไร", "ทำไม"}
)

// Classify maps text to exactly one intent. Matching is case-insensitive
// substring search in a fixed priority order.
func Classify(text string) Intent {
	lower := strings.ToLower(text)

	for _, rule := range faqRules {
		if containsAny(lower, rule.keywords) {
			return rule.intent
		}
	}
	if containsAny(lower, restaurantKeywords) {
		return IntentMenu
	}
	if containsAny(lower, greetingKeywords) {
		return IntentGreeting
	}
	if utf8.RuneCountInString(lower) > complexMinRunes && containsAny(lower, interrogativeMarker) {
		return IntentAIComplex
	}
	return IntentAIFallback
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// FallbackMessage is returned whenever the chat model cannot answer.
const FallbackMessage = "ขออภัยค่ะ ไม่เข้าใจคำถาม 🤔\nลองถามใหม่หรือกด 'สั่งอาหาร' เลยนะคะ 😊"

// GreetingMessage welcomes a customer.
const GreetingMessage = "สวัสดีค่ะ! ยินดีต้อนรับสู่ Tenzai Sushi 🍣\nมีอะไรให้ช่วยไหมคะ?"

var faqAnswers = map[Intent]string{
	IntentHours:    "🕙 เปิดให้บริการทุกวัน 10:00-21:00 น.\n📋 รับออเดอร์ล่าสุด 20:30 น.",
	IntentLocation: "📍 123 ถนนสุขุมวิท แขวงคลองตัน เขตวัฒนา กรุงเทพฯ 10110\n📞 02-xxx-xxxx",
	IntentMenu:     "🍜 ดูเมนูและราคาทั้งหมดได้ที่หน้าสั่งอาหาร\nหรือกดปุ่ม 'สั่งอาหาร' ด้านล่าง",
	IntentPayment:  "💳 รับชำระ: เงินสด/โอนเงิน/พร้อมเพย์\n📷 ส่งสลิปในแชทหลังสั่งเสร็จนะคะ",
	IntentOrder:    "🛒 สั่งอาหารออนไลน์ได้ที่ลิงก์ด้านล่าง\nหรือกดปุ่ม 'สั่งอาหาร' เลยค่ะ",
}

// FAQ returns the fixed answer for intent, if it has one.
func FAQ(intent Intent) (string, bool) {
	answer, ok := faqAnswers[intent]
	return answer, ok
}
