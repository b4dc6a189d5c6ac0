package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hotel-booking/controllers"
	"hotel-booking/middleware"
	"hotel-booking/models"
	"hotel-booking/repository"
)

func parseCorsOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type Deps struct {
	Store       repository.Store
	JWTSecret   string
	CORSOrigins string
	Log         logrus.FieldLogger

	Bookings *controllers.BookingController
	Payments *controllers.PaymentController
	Auth     *controllers.AuthController
	Rooms    *controllers.RoomController
}

// SetupRouter builds the gin engine with every route mounted under /api/v1.
func SetupRouter(d Deps) (*gin.Engine, error) {
	if err := controllers.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middleware.Logger(d.Log), middleware.Recovery(d.Log))

	origins := parseCorsOrigins(d.CORSOrigins)
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// no token; the gateway signs the raw body
	r.POST("/webhook", d.Payments.Webhook)

	protect := middleware.Protect(d.JWTSecret, d.Store, d.Log)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", d.Auth.Login)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("", d.Rooms.GetRooms)
			rooms.GET("/:id", d.Rooms.GetRoom)
			rooms.POST("", protect, middleware.RestrictTo(d.Log, models.RoleAdmin), d.Rooms.CreateRoom)
		}

		bookings := api.Group("/bookings")
		{
			// static paths before /:id
			bookings.GET("/available-rooms", d.Bookings.GetAvailableRooms)
			bookings.GET("/success", d.Payments.PaymentSuccess)
			bookings.GET("/cancel", d.Payments.PaymentCancel)

			bookings.POST("", protect, middleware.RestrictTo(d.Log, models.RoleGuest), d.Bookings.CreateBooking)
			bookings.GET("", protect, d.Bookings.GetBookings)
			bookings.GET("/:id", protect, d.Bookings.GetBooking)
			bookings.PATCH("/:id", protect, d.Bookings.UpdateBooking)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "fail", "message": "Can't find " + c.Request.URL.Path + " on this server"})
	})

	return r, nil
}
