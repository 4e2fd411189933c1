package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"

	"github.com/summitrails/tour-booking-api/internal/api/handler"
	"github.com/summitrails/tour-booking-api/internal/api/middleware"
	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
	"github.com/summitrails/tour-booking-api/internal/core/service"
	mongodb "github.com/summitrails/tour-booking-api/internal/infrastructure/db/mongo"
	redisdb "github.com/summitrails/tour-booking-api/internal/infrastructure/db/redis"
)

// RouterConfig carries everything the route table needs beyond the data
// stores.
type RouterConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	CookieTTL  time.Duration
	Production bool
	RateLimit  rate.Limit
	Gateway    ports.PaymentGateway
	Mailer     ports.Mailer
	Log        zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log, cfg.Production)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.Gzip())
	e.Use(echoprometheus.NewMiddleware("tours"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	tourRepo := mongodb.NewTourRepository(db)
	reviewRepo := mongodb.NewReviewRepository(db)
	bookingRepo := mongodb.NewBookingRepository(db)
	dedup := redisdb.NewCheckoutDedup(rdb)

	authService := service.NewAuthService(userRepo, cfg.Mailer, cfg.JWTSecret, cfg.TokenTTL, cfg.Log)
	reviewService := service.NewReviewService(reviewRepo, cfg.Log)
	bookingService := service.NewBookingService(tourRepo, userRepo, bookingRepo, cfg.Gateway, dedup, cfg.Log)

	authHandler := handler.NewAuthHandler(authService, userRepo, cfg.CookieTTL)
	userHandler := handler.NewUserHandler(userRepo)
	tourHandler := handler.NewTourHandler(tourRepo, userRepo, reviewRepo)
	reviewHandler := handler.NewReviewHandler(reviewRepo, reviewService, userRepo)
	bookingHandler := handler.NewBookingHandler(bookingRepo, bookingService, tourRepo, userRepo)

	protect := middleware.Protect(userRepo, cfg.JWTSecret)
	adminOnly := middleware.RestrictTo(domain.RoleAdmin)
	staffOnly := middleware.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide)

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(db, rdb).Readiness)

	// The provider webhook stays outside /api/v1: it authenticates with a
	// payload signature, not a session, and must see the raw body.
	e.POST("/webhook-checkout", bookingHandler.Webhook)

	api := e.Group("/api/v1",
		echomiddleware.BodyLimit("10K"),
		echomiddleware.RateLimiter(echomiddleware.NewRateLimiterMemoryStore(rateLimit(cfg.RateLimit))),
	)

	// --- Users ---
	users := api.Group("/users")
	users.POST("/signup", authHandler.SignUp)
	users.POST("/login", authHandler.Login)
	users.GET("/logout", authHandler.Logout)
	users.POST("/forgotPassword", authHandler.ForgotPassword)
	users.PATCH("/resetPassword/:token", authHandler.ResetPassword)

	users.PATCH("/updateMyPassword", authHandler.UpdateMyPassword, protect)
	users.GET("/me", authHandler.GetMe, protect)
	users.PATCH("/updateMe", authHandler.UpdateMe, protect)
	users.DELETE("/deleteMe", authHandler.DeleteMe, protect)

	users.GET("", userHandler.GetAll, protect, adminOnly)
	users.POST("", userHandler.Create, protect, adminOnly)
	users.GET("/:id", userHandler.GetOne, protect, adminOnly)
	users.PATCH("/:id", userHandler.Update, protect, adminOnly)
	users.DELETE("/:id", userHandler.Delete, protect, adminOnly)

	// --- Tours ---
	tours := api.Group("/tours")
	tours.GET("", tourHandler.GetAll)
	tours.POST("", tourHandler.Create, protect, staffOnly)
	tours.GET("/top-5-cheap", tourHandler.GetAll, tourHandler.AliasTopTours)
	tours.GET("/tour-stats", tourHandler.GetTourStats)
	tours.GET("/monthly-plan/:year", tourHandler.GetMonthlyPlan,
		protect, middleware.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide))
	tours.GET("/tours-within/:distance/center/:latlng/unit/:unit", tourHandler.GetToursWithin)
	tours.GET("/distances/:latlng/unit/:unit", tourHandler.GetDistances)
	tours.GET("/:id", tourHandler.GetOne)
	tours.PATCH("/:id", tourHandler.Update, protect, staffOnly)
	tours.DELETE("/:id", tourHandler.Delete, protect, staffOnly)

	// Nested reviews: reads are public, writes belong to customers.
	tours.GET("/:tourId/reviews", reviewHandler.GetAll)
	tours.POST("/:tourId/reviews", reviewHandler.Create, protect, middleware.RestrictTo(domain.RoleUser))

	// --- Reviews ---
	reviews := api.Group("/reviews", protect)
	reviews.GET("", reviewHandler.GetAll)
	reviews.POST("", reviewHandler.Create, middleware.RestrictTo(domain.RoleUser))
	reviews.GET("/:id", reviewHandler.GetOne)
	reviews.PATCH("/:id", reviewHandler.Update, middleware.RestrictTo(domain.RoleUser, domain.RoleAdmin))
	reviews.DELETE("/:id", reviewHandler.Delete, middleware.RestrictTo(domain.RoleUser, domain.RoleAdmin))

	// --- Bookings ---
	bookings := api.Group("/bookings", protect)
	bookings.GET("/checkout-session/:tourId", bookingHandler.GetCheckoutSession)
	bookings.GET("/my-bookings", bookingHandler.MyBookings)
	bookings.GET("", bookingHandler.GetAll, staffOnly)
	bookings.POST("", bookingHandler.Create, staffOnly)
	bookings.GET("/:id", bookingHandler.GetOne, staffOnly)
	bookings.PATCH("/:id", bookingHandler.Update, staffOnly)
	bookings.DELETE("/:id", bookingHandler.Delete, staffOnly)

	return e
}

func rateLimit(v rate.Limit) rate.Limit {
	if v <= 0 {
		return 100
	}
	return v
}
