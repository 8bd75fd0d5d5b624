package routes

import (
	"log"
	"os"

	controller "eventhub/controllers"
	"eventhub/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	// Auth routes group with logging middleware
	auth := app.Group("/auth", middleware.AuthRateLimiter(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Get("/me", controller.GetCurrentUser)
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	subscriptionLogger := newLogger("subscription")
	catalogLogger := newLogger("catalog")

	subscriptionController := controller.NewSubscriptionController(db, subscriptionLogger)
	planController := controller.NewPlanController(db, catalogLogger)
	featureController := controller.NewFeatureController(db, catalogLogger)
	eventController := controller.NewEventController(db, newLogger("event"))
	clientController := controller.NewClientController(db, newLogger("client"))

	// Public pricing page
	app.Get("/plans", planController.ListPlans)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Subscription / entitlement read API
	subscription := api.Group("/subscription")
	subscription.Get("/status", subscriptionController.GetStatus)
	subscription.Get("/features", subscriptionController.GetFeatures)
	subscription.Get("/features/:code", subscriptionController.HasFeature)
	subscription.Get("/limits", subscriptionController.GetLimits)
	subscription.Get("/can-create/:kind", subscriptionController.CanCreate)
	subscription.Get("/history", subscriptionController.GetHistory)
	subscription.Post("/sync", subscriptionController.Sync)

	// Event routes
	event := api.Group("/events")
	event.Post("/", eventController.CreateEvent)
	event.Get("/", eventController.GetEvents)

	// Client routes
	client := api.Group("/clients")
	client.Post("/", clientController.CreateClient)
	client.Get("/", clientController.GetClients)

	// Admin catalog routes
	admin := api.Group("/admin", middleware.AdminOnly())
	admin.Get("/plans", planController.ListAllPlans)
	admin.Post("/plans", planController.CreatePlan)
	admin.Put("/plans/:id", planController.UpdatePlan)
	admin.Delete("/plans/:id", planController.DeletePlan)
	admin.Get("/features", featureController.ListFeatures)
	admin.Post("/features", featureController.CreateFeature)
	admin.Put("/features/:id", featureController.UpdateFeature)
	admin.Delete("/features/:id", featureController.DeleteFeature)
}

func SetupWebhookRoutes(app *fiber.App, db *gorm.DB) {
	webhookController := controller.NewWebhookController(db, newLogger("webhook"))

	webhook := app.Group("/webhooks", middleware.WebhookRateLimiter())
	webhook.Post("/hotmart", webhookController.HandleHotmartWebhook)
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db)
	SetupWebhookRoutes(app, db)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("Routes initialized successfully")
}

func newLogger(component string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.AddHook(&componentHook{component: component})
	return l
}

// componentHook stamps every entry with the owning component name
type componentHook struct {
	component string
}

func (h *componentHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *componentHook) Fire(e *logrus.Entry) error {
	e.Data["component"] = h.component
	return nil
}
