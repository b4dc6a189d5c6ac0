package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"hotel-booking/models"
	"hotel-booking/utils"
)

const dateLayout = "2006-01-02"

// parseDate accepts a calendar date or a full RFC 3339 timestamp and returns UTC.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// dateRange is implemented by payloads carrying a check-in/check-out pair.
type dateRange interface {
	dates() (string, string)
}

func validateDateRange(sl validator.StructLevel) {
	r, ok := sl.Current().Interface().(dateRange)
	if !ok {
		return
	}
	rawIn, rawOut := r.dates()
	in, err1 := parseDate(rawIn)
	out, err2 := parseDate(rawOut)
	if err1 != nil || err2 != nil {
		return
	}
	if !out.After(in) {
		sl.ReportError(rawOut, "checkOutDate", "CheckOutDate", "afterCheckIn", "")
	}
}

// RegisterValidators adds the booking tags to gin's validator. Safe to call more than once.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator is not go-playground/validator")
	}
	tags := map[string]validator.Func{
		"isodate": func(fl validator.FieldLevel) bool {
			_, err := parseDate(fl.Field().String())
			return err == nil
		},
		"bookingstatus": func(fl validator.FieldLevel) bool {
			return models.BookingStatus(fl.Field().String()).Valid()
		},
		"paymentstatus": func(fl validator.FieldLevel) bool {
			return models.PaymentStatus(fl.Field().String()).Valid()
		},
		"paymentmethod": func(fl validator.FieldLevel) bool {
			return models.PaymentMethod(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	v.RegisterStructValidation(validateDateRange, CreateBookingRequest{}, AvailableRoomsRequest{})
	return nil
}

var tagMessages = map[string]string{
	"required":      "is required",
	"isodate":       "must be a date (YYYY-MM-DD)",
	"bookingstatus": "must be one of pending, confirmed, cancelled, checked-in, checked-out",
	"paymentstatus": "must be one of pending, paid, failed",
	"paymentmethod": "must be card or cash",
	"afterCheckIn":  "must be after check-in date",
	"email":         "must be a valid email",
	"gt":            "must be greater than zero",
}

// bindingError turns a gin binding failure into an InvalidInput error listing
// the offending fields.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return utils.InvalidInput("Invalid request body")
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		parts = append(parts, fmt.Sprintf("%s %s", lowerFirst(fe.Field()), msg))
	}
	return utils.InvalidInput("Invalid input data. %s", strings.Join(parts, ". "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
