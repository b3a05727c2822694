package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/automate-app/automate_be/internal/config"
	"github.com/automate-app/automate_be/internal/db"
	"github.com/automate-app/automate_be/internal/handlers"
	"github.com/automate-app/automate_be/internal/middleware"
	"github.com/automate-app/automate_be/internal/models"
	"github.com/automate-app/automate_be/internal/realtime"
	"github.com/automate-app/automate_be/internal/services/advisor"
	"github.com/automate-app/automate_be/internal/services/rating"
)

func main() {
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		logrus.WithError(err).Fatal("connect database")
	}

	rdb := realtime.NewRedis()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logrus.WithError(err).Fatal("connect redis")
	}

	hub := realtime.NewHub()
	go hub.Run()

	bridge := realtime.NewBridge(hub, rdb)
	go bridge.Run(context.Background())

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.MechanicProfile{},
		&models.ServiceType{},
		&models.ServiceRequest{},
		&models.Review{},
	); err != nil {
		logrus.WithError(err).Fatal("migrate database")
	}

	if err := handlers.SeedServiceTypes(gdb); err != nil {
		logrus.WithError(err).Fatal("seed service types")
	}

	adv := advisor.NewAdvisorService(cfg.GeminiAPIKey, cfg.GeminiModel)
	ratingSvc := rating.NewRatingService(gdb)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}

	requestH := handlers.NewServiceRequestHandler(gdb, adv, bridge)
	reviewH := handlers.NewReviewHandler(gdb, ratingSvc)
	mechanicH := handlers.NewMechanicProfileHandler(gdb, cfg.IDEncryptKey)
	profileH := handlers.NewUserProfileHandler(gdb)
	typeH := handlers.NewServiceTypeHandler(gdb)
	assistH := handlers.NewAssistHandler(adv)
	adminH := handlers.NewAdminHandler(gdb)
	notifyH := handlers.NewNotifyHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/service-types", typeH.List)
	api.Get("/mechanics", mechanicH.ListPublic)
	api.Get("/mechanics/:id", mechanicH.GetPublic)

	// protected (JWT in cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", func(c *fiber.Ctx) error {
		uid := c.Locals("userId")

		var user models.User
		if err := gdb.First(&user, "id = ?", uid).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "User not found",
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	})

	// service requests
	protected.Get("/service-requests", requestH.List)
	protected.Get("/service-requests/:id", requestH.Get)
	protected.Post("/service-requests",
		middleware.RequireRoles("client", "admin"),
		requestH.Create,
	)
	protected.Put("/service-requests/:id", requestH.Update)
	protected.Delete("/service-requests/:id", requestH.Delete)
	protected.Patch("/service-requests/:id/accept",
		middleware.RequireRoles("mechanic", "admin"),
		requestH.Accept,
	)
	protected.Patch("/service-requests/:id/complete",
		middleware.RequireRoles("mechanic", "admin"),
		requestH.Complete,
	)
	protected.Patch("/service-requests/:id/reject",
		middleware.RequireRoles("mechanic", "admin"),
		requestH.Reject,
	)

	// reviews
	protected.Get("/reviews", reviewH.List)
	protected.Get("/reviews/:id", reviewH.Get)
	protected.Post("/reviews",
		middleware.RequireRoles("client"),
		reviewH.Create,
	)
	protected.Put("/reviews/:id", reviewH.Update)
	protected.Delete("/reviews/:id", reviewH.Delete)

	// profiles
	protected.Get("/profile", profileH.Get)
	protected.Post("/profile", profileH.Create)
	protected.Put("/profile", profileH.Update)

	protected.Get("/mechanic/profile/me",
		middleware.RequireRoles("mechanic", "admin"),
		mechanicH.MyProfile,
	)
	protected.Post("/mechanic/profile",
		middleware.RequireRoles("mechanic", "admin"),
		mechanicH.Create,
	)
	protected.Put("/mechanic/profile",
		middleware.RequireRoles("mechanic", "admin"),
		mechanicH.Update,
	)

	// AI assistant
	protected.Post("/assist", assistH.Chat)

	// admin
	admin := protected.Group("/admin", middleware.RequireRoles("admin"))
	admin.Get("/users", adminH.ListUsers)
	admin.Patch("/users/:id/role", adminH.ChangeRole)
	admin.Post("/service-types", typeH.Create)
	admin.Put("/service-types/:id", typeH.Update)
	admin.Delete("/service-types/:id", typeH.Delete)
	admin.Patch("/mechanics/:id/verify", mechanicH.Verify)
	admin.Delete("/mechanics/:id", mechanicH.Delete)

	// websocket (auth via query param, browsers can't set upgrade headers)
	app.Get("/ws/notifications", websocket.New(notifyH.WebSocketHandler))

	logrus.WithField("port", cfg.AppPort).Info("starting server")
	logrus.Fatal(app.Listen(":" + cfg.AppPort))
}
