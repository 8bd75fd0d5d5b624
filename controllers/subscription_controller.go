package controller

import (
	"eventhub/models"
	"eventhub/services"
	"eventhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SubscriptionController exposes the entitlement read API consumed by the
// frontend and API middleware: plan status, feature list, limits and the
// can-create gates.
type SubscriptionController struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	Entitlements *services.EntitlementService
	Limits       *services.LimitService
}

func NewSubscriptionController(db *gorm.DB, logger *logrus.Logger) *SubscriptionController {
	return &SubscriptionController{
		DB:           db,
		Logger:       logger,
		Entitlements: services.NewEntitlementService(db, logger),
		Limits:       services.NewLimitService(db, logger),
	}
}

func (sc *SubscriptionController) GetStatus(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	status, err := sc.Entitlements.PlanStatus(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve plan status", err)
	}
	return c.JSON(utils.SuccessResponse(status))
}

func (sc *SubscriptionController) GetFeatures(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	features, err := sc.Entitlements.EnabledFeatures(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve features", err)
	}
	return c.JSON(utils.SuccessResponse(features))
}

// HasFeature answers a single feature check, used by UI gating
func (sc *SubscriptionController) HasFeature(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	code := c.Params("code")

	granted, err := sc.Entitlements.HasFeature(user.ID, code)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check feature", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"code":    code,
		"granted": granted,
	}))
}

func (sc *SubscriptionController) GetLimits(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	limits, err := sc.Limits.UserLimits(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute limits", err)
	}
	return c.JSON(utils.SuccessResponse(limits))
}

func (sc *SubscriptionController) CanCreate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	kind := c.Params("kind")

	check, err := sc.Limits.CanCreate(user.ID, kind)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to check creation gate", err)
	}
	return c.JSON(utils.SuccessResponse(check))
}

// Sync recomputes the denormalized subscription cache on the user record
func (sc *SubscriptionController) Sync(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	updated, err := sc.Entitlements.SyncUserPlan(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to sync subscription", err)
	}
	return c.JSON(utils.SuccessResponse(updated))
}

// GetHistory returns the user's full subscription history for audit
// display, most recent first.
func (sc *SubscriptionController) GetHistory(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var subscriptions []models.Subscription
	if err := sc.DB.Where("user_id = ?", user.ID).
		Order("started_at DESC").
		Find(&subscriptions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load subscriptions", err)
	}
	return c.JSON(utils.SuccessResponse(subscriptions))
}
