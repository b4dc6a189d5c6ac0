package services

import (
	"hotel-booking/models"
	"hotel-booking/utils"
)

// Actor is the authenticated user performing a request.
type Actor struct {
	ID      uint
	Role    models.Role
	HotelID *uint
}

func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, HotelID: u.HotelID}
}

// BookingChanges is a manual status/paymentStatus update. Nil fields are left as is.
type BookingChanges struct {
	Status        *models.BookingStatus
	PaymentStatus *models.PaymentStatus
}

func (c BookingChanges) Empty() bool {
	return c.Status == nil && c.PaymentStatus == nil
}

// Authorize applies the role rules for a manual booking update. roomHotelID is
// the hotel owning the booking's room, nil when the room no longer exists.
func Authorize(actor Actor, booking *models.Booking, roomHotelID *uint, changes BookingChanges) error {
	switch actor.Role {
	case models.RoleGuest:
		if booking.UserID != actor.ID {
			return utils.Forbidden("You can only update your own bookings")
		}
		if changes.Status != nil && *changes.Status != models.BookingCancelled {
			return utils.Forbidden("Guests can only cancel a booking")
		}
		if changes.PaymentStatus != nil {
			return utils.Forbidden("Guests cannot change the payment status")
		}
		return nil

	case models.RoleReceptionist:
		if actor.HotelID == nil || roomHotelID == nil || *actor.HotelID != *roomHotelID {
			return utils.Forbidden("This booking does not belong to your hotel")
		}
		if changes.PaymentStatus != nil && booking.PaymentMethod == models.PaymentCard {
			return utils.Forbidden("Card payment status is managed by the payment gateway")
		}
		if changes.Status != nil && booking.Status == models.BookingCancelled && *changes.Status == models.BookingConfirmed {
			return utils.Forbidden("Only an admin can reactivate a cancelled booking")
		}
		if booking.Status == models.BookingCheckedOut {
			return utils.Forbidden("This booking is already checked out")
		}
		return nil

	case models.RoleAdmin:
		return nil
	}
	return utils.Forbidden("You do not have permission to perform this action")
}

type transition struct {
	from, to models.BookingStatus
}

var (
	staff    = []models.Role{models.RoleReceptionist, models.RoleAdmin}
	allRoles = []models.Role{models.RoleGuest, models.RoleReceptionist, models.RoleAdmin}
)

// statusTransitions lists every allowed manual status change and who may make it.
var statusTransitions = map[transition][]models.Role{
	{models.BookingPending, models.BookingConfirmed}:   staff,
	{models.BookingPending, models.BookingCancelled}:   allRoles,
	{models.BookingConfirmed, models.BookingCancelled}: allRoles,
	{models.BookingConfirmed, models.BookingCheckedIn}: staff,
	{models.BookingCheckedIn, models.BookingCheckedOut}: staff,
	{models.BookingCancelled, models.BookingConfirmed}: {models.RoleAdmin},
}

func IsTerminal(s models.BookingStatus) bool {
	return s == models.BookingCancelled || s == models.BookingCheckedOut
}

// CheckTransition reports whether role may move a booking from one status to
// another. Setting the current status again is allowed and changes nothing.
func CheckTransition(role models.Role, from, to models.BookingStatus) error {
	if !to.Valid() {
		return utils.InvalidInput("Invalid booking status %q", to)
	}
	if from == to {
		return nil
	}
	if from == models.BookingCheckedOut {
		return utils.AlreadyFinalized("Booking is already checked out")
	}
	roles, ok := statusTransitions[transition{from, to}]
	if !ok {
		if IsTerminal(from) {
			return utils.AlreadyFinalized("Booking is already %s", from)
		}
		return utils.InvalidInput("Cannot change booking status from %s to %s", from, to)
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return utils.Forbidden("You cannot change booking status from %s to %s", from, to)
}

// CheckPaymentTransition allows pending -> paid|failed only.
func CheckPaymentTransition(from, to models.PaymentStatus) error {
	if !to.Valid() {
		return utils.InvalidInput("Invalid payment status %q", to)
	}
	if from == to {
		return nil
	}
	if from != models.PaymentPending {
		return utils.AlreadyFinalized("Payment is already %s", from)
	}
	return nil
}
