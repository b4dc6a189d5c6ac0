package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"hotel-booking/services"
	"hotel-booking/utils"
)

type CreateRoomRequest struct {
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	RoomType      string          `json:"roomType" binding:"required"`
	PricePerNight decimal.Decimal `json:"pricePerNight"`
	Capacity      int             `json:"capacity" binding:"required,gt=0"`
	HotelID       uint            `json:"hotelId" binding:"required,gt=0"`
	Availability  *bool           `json:"availability"`
}

type RoomController struct {
	RoomSvc *services.RoomService
	Log     logrus.FieldLogger
}

func NewRoomController(rooms *services.RoomService, log logrus.FieldLogger) *RoomController {
	return &RoomController{RoomSvc: rooms, Log: log.WithField("component", "rooms")}
}

// ----------------------------------------------------
// GET /rooms
// ----------------------------------------------------

func (ctrl *RoomController) GetRooms(c *gin.Context) {
	q, err := utils.ParseListQuery(c.Request.URL.Query(), utils.RoomResource)
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}
	rooms, err := ctrl.RoomSvc.GetAll(c.Request.Context(), q)
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

// ----------------------------------------------------
// GET /rooms/:id
// ----------------------------------------------------

func (ctrl *RoomController) GetRoom(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, ctrl.Log, utils.InvalidInput("Invalid room id %q", c.Param("id")))
		return
	}
	room, err := ctrl.RoomSvc.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"room": room})
}

// ----------------------------------------------------
// POST /rooms (admin)
// ----------------------------------------------------

func (ctrl *RoomController) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, ctrl.Log, bindingError(err))
		return
	}

	room, err := ctrl.RoomSvc.Create(c.Request.Context(), services.CreateRoomInput{
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		RoomType:      req.RoomType,
		PricePerNight: req.PricePerNight,
		Capacity:      req.Capacity,
		HotelID:       req.HotelID,
		Availability:  req.Availability,
	})
	if err != nil {
		utils.RespondError(c, ctrl.Log, err)
		return
	}
	ctrl.Log.WithFields(logrus.Fields{"room_id": room.ID, "hotel_id": room.HotelID}).Info("room created")
	utils.JSONSuccess(c, http.StatusCreated, gin.H{"room": room})
}
