package controller

import (
	"eventhub/models"
	"eventhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PlanController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewPlanController(db *gorm.DB, logger *logrus.Logger) *PlanController {
	return &PlanController{DB: db, Logger: logger}
}

type PlanRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Description     string `json:"description" validate:"omitempty,max=500"`
	HotmartCode     string `json:"hotmart_code" validate:"required,max=100"`
	PriceCents      int    `json:"price_cents" validate:"gte=0"`
	BillingInterval string `json:"billing_interval" validate:"omitempty,oneof=monthly yearly"`
	Active          *bool  `json:"active"`
	Highlighted     bool   `json:"highlighted"`
	MaxEvents       *int   `json:"max_events" validate:"omitempty,gte=0"`
	MaxClients      *int   `json:"max_clients" validate:"omitempty,gte=0"`
	MaxUsers        *int   `json:"max_users" validate:"omitempty,gte=0"`
	MaxStorageMB    *int   `json:"max_storage_mb" validate:"omitempty,gte=0"`
	FeatureIDs      []uint `json:"feature_ids"`
}

// ListPlans returns active plans for the public pricing page
func (pc *PlanController) ListPlans(c *fiber.Ctx) error {
	var plans []models.Plan
	if err := pc.DB.Preload("Features", "active = ?", true).
		Where("active = ?", true).
		Order("price_cents ASC").
		Find(&plans).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load plans", err)
	}
	return c.JSON(utils.SuccessResponse(plans))
}

// ListAllPlans returns every plan, including inactive, for the admin catalog
func (pc *PlanController) ListAllPlans(c *fiber.Ctx) error {
	var plans []models.Plan
	if err := pc.DB.Preload("Features").Order("price_cents ASC").Find(&plans).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load plans", err)
	}
	return c.JSON(utils.SuccessResponse(plans))
}

func (pc *PlanController) CreatePlan(c *fiber.Ctx) error {
	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var features []models.Feature
	if len(req.FeatureIDs) > 0 {
		if err := pc.DB.Where("id IN ?", req.FeatureIDs).Find(&features).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve features", err)
		}
	}

	plan := models.Plan{
		Name:            req.Name,
		Description:     req.Description,
		HotmartCode:     req.HotmartCode,
		PriceCents:      req.PriceCents,
		BillingInterval: req.BillingInterval,
		Active:          true,
		Highlighted:     req.Highlighted,
		MaxEvents:       req.MaxEvents,
		MaxClients:      req.MaxClients,
		MaxUsers:        req.MaxUsers,
		MaxStorageMB:    req.MaxStorageMB,
		Features:        features,
	}
	if req.BillingInterval == "" {
		plan.BillingInterval = models.BillingIntervalMonthly
	}
	if req.Active != nil {
		plan.Active = *req.Active
	}

	if err := pc.DB.Create(&plan).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create plan", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(plan))
}

// UpdatePlan edits the catalog entry. Existing subscriptions keep their
// feature snapshot; only new purchases or explicit re-syncs pick up the
// change.
func (pc *PlanController) UpdatePlan(c *fiber.Ctx) error {
	var plan models.Plan
	if err := pc.DB.First(&plan, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Plan not found", err)
	}

	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	plan.Name = req.Name
	plan.Description = req.Description
	plan.HotmartCode = req.HotmartCode
	plan.PriceCents = req.PriceCents
	plan.Highlighted = req.Highlighted
	plan.MaxEvents = req.MaxEvents
	plan.MaxClients = req.MaxClients
	plan.MaxUsers = req.MaxUsers
	plan.MaxStorageMB = req.MaxStorageMB
	if req.BillingInterval != "" {
		plan.BillingInterval = req.BillingInterval
	}
	if req.Active != nil {
		plan.Active = *req.Active
	}

	if err := pc.DB.Save(&plan).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update plan", err)
	}

	var features []models.Feature
	if len(req.FeatureIDs) > 0 {
		if err := pc.DB.Where("id IN ?", req.FeatureIDs).Find(&features).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve features", err)
		}
	}
	if err := pc.DB.Model(&plan).Association("Features").Replace(features); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update plan features", err)
	}

	return c.JSON(utils.SuccessResponse(plan))
}

// DeletePlan deactivates rather than deletes: subscriptions reference
// plans by id and the history must keep resolving.
func (pc *PlanController) DeletePlan(c *fiber.Ctx) error {
	var plan models.Plan
	if err := pc.DB.First(&plan, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Plan not found", err)
	}

	plan.Active = false
	if err := pc.DB.Save(&plan).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to deactivate plan", err)
	}
	return c.JSON(utils.SuccessResponse(plan))
}
