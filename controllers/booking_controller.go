// controllers/booking_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hotel-booking/middleware"
	"hotel-booking/models"
	"hotel-booking/services"
	"hotel-booking/utils"
)

// ---------------------------
// Payload / DTOs
// ---------------------------

type CreateBookingRequest struct {
	RoomID        uint   `json:"roomId" binding:"required,gt=0"`
	CheckInDate   string `json:"checkInDate" binding:"required,isodate"`
	CheckOutDate  string `json:"checkOutDate" binding:"required,isodate"`
	PaymentMethod string `json:"paymentMethod" binding:"omitempty,paymentmethod"`
}

func (r CreateBookingRequest) dates() (string, string) { return r.CheckInDate, r.CheckOutDate }

type UpdateBookingRequest struct {
	Status        *string `json:"status" binding:"omitempty,bookingstatus"`
	PaymentStatus *string `json:"paymentStatus" binding:"omitempty,paymentstatus"`
}

type AvailableRoomsRequest struct {
	CheckInDate  string `form:"checkInDate" binding:"required,isodate"`
	CheckOutDate string `form:"checkOutDate" binding:"required,isodate"`
	HotelID      *uint  `form:"hotelId"`
}

func (r AvailableRoomsRequest) dates() (string, string) { return r.CheckInDate, r.CheckOutDate }

// ---------------------------
// Controller
// ---------------------------

type BookingController struct {
	BookingSvc      *services.BookingService
	AvailabilitySvc *services.AvailabilityService
	Log             logrus.FieldLogger
}

func NewBookingController(bookings *services.BookingService, availability *services.AvailabilityService, log logrus.FieldLogger) *BookingController {
	return &BookingController{
		BookingSvc:      bookings,
		AvailabilitySvc: availability,
		Log:             log.WithField("component", "bookings"),
	}
}

func bookingID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, utils.InvalidInput("Invalid booking id %q", c.Param("id"))
	}
	return uint(id), nil
}

func actorOf(c *gin.Context) (services.Actor, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return services.Actor{}, false
	}
	return services.ActorFromUser(user), true
}

// POST /bookings
func (ctrl *BookingController) CreateBooking(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		utils.RespondError(c, ctrl.Log, utils.Unauthorized("You are not logged in! Please log in to get access."))
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, ctrl.Log, bindingError(err))
		return
	}
	checkIn, _ := parseDate(req.CheckInDate)
	checkOut, _ := parseDate(req.CheckOutDate)

	booking, paymentURL, err := ctrl.BookingSvc.CreateBooking(c.Request.Context(), actor, services.CreateBookingInput{
		RoomID:        req.RoomID,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}

	var url any
	if paymentURL != "" {
		url = paymentURL
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":     "success",
		"data":       gin.H{"booking": booking},
		"paymentUrl": url,
	})
}

// GET /bookings
func (ctrl *BookingController) GetBookings(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		utils.RespondError(c, ctrl.Log, utils.Unauthorized("You are not logged in! Please log in to get access."))
		return
	}

	q, err := utils.ParseListQuery(c.Request.URL.Query(), utils.BookingResource)
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}
	bookings, err := ctrl.BookingSvc.ListBookings(c.Request.Context(), actor, q)
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"results":    len(bookings),
		"pagination": q.Pagination(),
		"data":       gin.H{"bookings": bookings},
	})
}

// GET /bookings/:id
func (ctrl *BookingController) GetBooking(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		utils.RespondError(c, ctrl.Log, utils.Unauthorized("You are not logged in! Please log in to get access."))
		return
	}
	id, err := bookingID(c)
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}

	booking, err := ctrl.BookingSvc.GetBooking(c.Request.Context(), actor, id)
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"booking": booking})
}

// PATCH /bookings/:id
func (ctrl *BookingController) UpdateBooking(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		utils.RespondError(c, ctrl.Log, utils.Unauthorized("You are not logged in! Please log in to get access."))
		return
	}
	id, err := bookingID(c)
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}

	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, ctrl.Log, bindingError(err))
		return
	}
	var changes services.BookingChanges
	if req.Status != nil {
		s := models.BookingStatus(*req.Status)
		changes.Status = &s
	}
	if req.PaymentStatus != nil {
		p := models.PaymentStatus(*req.PaymentStatus)
		changes.PaymentStatus = &p
	}

	booking, err := ctrl.BookingSvc.UpdateBooking(c.Request.Context(), actor, id, changes)
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"booking": booking})
}

// GET /bookings/available-rooms
func (ctrl *BookingController) GetAvailableRooms(c *gin.Context) {
	var req AvailableRoomsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.RespondError(c, ctrl.Log, bindingError(err))
		return
	}
	checkIn, _ := parseDate(req.CheckInDate)
	checkOut, _ := parseDate(req.CheckOutDate)

	values := c.Request.URL.Query()
	values.Del("hotelId")
	q, err := utils.ParseListQuery(values, utils.RoomResource)
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}

	rooms, err := ctrl.AvailabilitySvc.ListAvailableRooms(c.Request.Context(), services.AvailableRoomsQuery{
		CheckIn:  checkIn,
		CheckOut: checkOut,
		HotelID:  req.HotelID,
		Query:    q,
	})
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"results":    len(rooms),
		"pagination": q.Pagination(),
		"data":       gin.H{"rooms": rooms},
	})
}
