package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"hotel-booking/models"
	"hotel-booking/repository"
	"hotel-booking/utils"
)

// Notifier delivers booking emails. Callers treat failures as best-effort.
type Notifier interface {
	Send(ctx context.Context, email utils.Email) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port != 0 && c.Username != "" && c.Password != ""
}

// EmailNotifier sends through SMTP with gomail.
type EmailNotifier struct {
	cfg SMTPConfig
	log logrus.FieldLogger
}

// NewNotifier returns an SMTP notifier, or a logging one when SMTP is not configured.
func NewNotifier(cfg SMTPConfig, log logrus.FieldLogger) Notifier {
	log = log.WithField("component", "notifier")
	if !cfg.Enabled() {
		return &LogNotifier{Log: log}
	}
	return &EmailNotifier{cfg: cfg, log: log}
}

func (n *EmailNotifier) Send(ctx context.Context, email utils.Email) error {
	if email.To == "" {
		return nil
	}
	from := n.cfg.From
	if from == "" {
		from = n.cfg.Username
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.Plain)
	m.AddAlternative("text/html", email.HTML)

	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)

	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	n.log.WithFields(logrus.Fields{"to": utils.MaskEmail(email.To), "subject": email.Subject}).Info("email sent")
	return nil
}

// LogNotifier writes emails to the log instead of sending them.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n *LogNotifier) Send(ctx context.Context, email utils.Email) error {
	n.Log.WithFields(logrus.Fields{"to": utils.MaskEmail(email.To), "subject": email.Subject}).Info("[MOCK EMAIL] " + email.Plain)
	return nil
}

// NotifyTimeout bounds one confirmation email, independent of the request context.
const NotifyTimeout = 15 * time.Second

func emailData(b *models.Booking, user *models.User) utils.BookingEmailData {
	d := utils.BookingEmailData{
		ReferenceCode: b.ReferenceCode,
		CheckIn:       b.CheckInDate.Format("2006-01-02"),
		CheckOut:      b.CheckOutDate.Format("2006-01-02"),
		TotalPrice:    b.TotalPrice.StringFixed(2),
	}
	if b.Room != nil {
		d.RoomName = b.Room.Name
	}
	if user != nil {
		d.GuestName = user.Name
	}
	return d
}

// notify loads the guest and sends the rendered email. Errors are logged only.
func notify(ctx context.Context, store repository.Store, n Notifier, log logrus.FieldLogger, b *models.Booking, render func(to string, d utils.BookingEmailData) utils.Email, tweak func(*utils.BookingEmailData)) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), NotifyTimeout)
	defer cancel()

	user, err := store.FindUser(ctx, b.UserID)
	if err != nil {
		log.WithError(err).WithField("booking_id", b.ID).Warn("notification skipped: guest not found")
		return
	}
	d := emailData(b, user)
	if tweak != nil {
		tweak(&d)
	}
	if err := n.Send(ctx, render(user.Email, d)); err != nil {
		log.WithError(err).WithField("booking_id", b.ID).Warn("failed to send booking notification")
	}
}
