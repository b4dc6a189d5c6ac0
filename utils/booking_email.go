package utils

import (
	"fmt"
	"strings"
)

// Email is a rendered message with plain-text and HTML alternatives.
type Email struct {
	To      string
	Subject string
	Plain   string
	HTML    string
}

type BookingEmailData struct {
	GuestName     string
	ReferenceCode string
	RoomName      string
	CheckIn       string
	CheckOut      string
	TotalPrice    string
	PaymentURL    string
	PayWithin     string
}

func safe(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\r\n", " ")
}

func (d BookingEmailData) clean() BookingEmailData {
	d.GuestName = safe(d.GuestName)
	if d.GuestName == "" {
		d.GuestName = "Guest"
	}
	d.ReferenceCode = safe(d.ReferenceCode)
	d.RoomName = safe(d.RoomName)
	d.PaymentURL = safe(d.PaymentURL)
	return d
}

const emailLayout = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { background:#f5f7fb; font-family:Arial, Helvetica, sans-serif; color:#222; }
.container { max-width:640px; margin:20px auto; }
.card { background:#fff; border:1px solid #e6eef6; padding:24px; border-radius:8px; }
.btn { display:inline-block; padding:12px 20px; background:#0b74ff; color:#fff; text-decoration:none; border-radius:6px; margin-top:16px; }
table td { padding:4px 12px 4px 0; }
</style>
</head>
<body>
<div class="container">
  <div class="card">
%s
  </div>
</div>
</body>
</html>`

func summaryTable(d BookingEmailData) string {
	return fmt.Sprintf(`    <table>
      <tr><td>Reference</td><td><strong>%s</strong></td></tr>
      <tr><td>Room</td><td>%s</td></tr>
      <tr><td>Check-in</td><td>%s</td></tr>
      <tr><td>Check-out</td><td>%s</td></tr>
      <tr><td>Total</td><td>%s</td></tr>
    </table>`, d.ReferenceCode, d.RoomName, d.CheckIn, d.CheckOut, d.TotalPrice)
}

func summaryText(d BookingEmailData) string {
	return fmt.Sprintf("Reference: %s\nRoom: %s\nCheck-in: %s\nCheck-out: %s\nTotal: %s\n",
		d.ReferenceCode, d.RoomName, d.CheckIn, d.CheckOut, d.TotalPrice)
}

// BookingCreatedEmail asks card guests to pay within the grace window and tells
// cash guests to pay at check-in.
func BookingCreatedEmail(to string, d BookingEmailData) Email {
	d = d.clean()
	subject := fmt.Sprintf("Booking %s received", d.ReferenceCode)

	var plain, action string
	if d.PaymentURL != "" {
		plain = fmt.Sprintf("Hi %s,\n\nYour booking has been created. Please complete the payment within %s or it will be cancelled:\n%s\n\n%s",
			d.GuestName, d.PayWithin, d.PaymentURL, summaryText(d))
		action = fmt.Sprintf(`    <p>Please complete the payment within %s or the booking will be cancelled.</p>
    <a class="btn" href="%s" target="_blank">Pay now</a>`, d.PayWithin, d.PaymentURL)
	} else {
		plain = fmt.Sprintf("Hi %s,\n\nYour booking has been created. Payment is due in cash at check-in.\n\n%s",
			d.GuestName, summaryText(d))
		action = `    <p>Payment is due in cash at check-in.</p>`
	}

	body := fmt.Sprintf("    <h2>Booking received</h2>\n    <p>Hi %s,</p>\n%s\n%s", d.GuestName, summaryTable(d), action)
	return Email{To: to, Subject: subject, Plain: plain, HTML: fmt.Sprintf(emailLayout, subject, body)}
}

func PaymentSucceededEmail(to string, d BookingEmailData) Email {
	d = d.clean()
	subject := fmt.Sprintf("Booking %s confirmed", d.ReferenceCode)
	plain := fmt.Sprintf("Hi %s,\n\nWe received your payment and your booking is confirmed.\n\n%s", d.GuestName, summaryText(d))
	body := fmt.Sprintf("    <h2>Payment successful</h2>\n    <p>Hi %s,</p>\n    <p>We received your payment and your booking is confirmed.</p>\n%s",
		d.GuestName, summaryTable(d))
	return Email{To: to, Subject: subject, Plain: plain, HTML: fmt.Sprintf(emailLayout, subject, body)}
}

func PaymentCancelledEmail(to string, d BookingEmailData) Email {
	d = d.clean()
	subject := fmt.Sprintf("Booking %s cancelled", d.ReferenceCode)
	plain := fmt.Sprintf("Hi %s,\n\nThe payment was not completed, so your booking has been cancelled.\n\n%s", d.GuestName, summaryText(d))
	body := fmt.Sprintf("    <h2>Booking cancelled</h2>\n    <p>Hi %s,</p>\n    <p>The payment was not completed, so your booking has been cancelled.</p>\n%s",
		d.GuestName, summaryTable(d))
	return Email{To: to, Subject: subject, Plain: plain, HTML: fmt.Sprintf(emailLayout, subject, body)}
}
