package mailer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SignupOTP is the verification code email sent by POST /send-otp.
func SignupOTP(to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your Melted Meethas Signup OTP",
		Text:    fmt.Sprintf("Your OTP is %s. It will expire in %s.", code, minutes(ttl)),
	}
}

// ResetOTP is the password reset code email.
func ResetOTP(to, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Password Reset OTP",
		Text:    fmt.Sprintf("Your OTP for password reset is %s and will expire in %s.", code, minutes(ttl)),
	}
}

// OrderLine is one row of an order summary email.
type OrderLine struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func OrderConfirmed(to, name, gatewayOrderID string, lines []OrderLine, discount, total decimal.Decimal) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nThank you for your order %s. We have received your payment.\n\n", greetingName(name), gatewayOrderID)
	for _, line := range lines {
		itemName := line.Name
		if itemName == "" {
			itemName = "Item"
		}
		fmt.Fprintf(&b, "- %s x%d @ Rs. %s\n", itemName, line.Quantity, line.UnitPrice.StringFixed(2))
	}
	if discount.IsPositive() {
		fmt.Fprintf(&b, "\nDiscount: Rs. %s", discount.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal paid: Rs. %s\n\nMM TEAM", total.StringFixed(2))
	return Message{To: to, ToName: name, Subject: "Your Melted Meethas order is confirmed", Text: b.String()}
}

func OrderCanceled(to, name, gatewayOrderID, reason string) Message {
	text := fmt.Sprintf("Hi %s,\n\nYour order %s has been cancelled.\nReason: %s\n\nMM TEAM", greetingName(name), gatewayOrderID, reason)
	return Message{To: to, ToName: name, Subject: "Your Melted Meethas order was cancelled", Text: text}
}

func OrderDelivered(to, name string, deliveredAt time.Time) Message {
	text := fmt.Sprintf("Hi %s,\n\nYour order was delivered on %s. Enjoy your sweets!\n\nMM TEAM", greetingName(name), deliveredAt.Format("02 Jan 2006"))
	return Message{To: to, ToName: name, Subject: "Your Melted Meethas order was delivered", Text: text}
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

func minutes(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
