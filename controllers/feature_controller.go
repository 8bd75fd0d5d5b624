package controller

import (
	"eventhub/models"
	"eventhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type FeatureController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewFeatureController(db *gorm.DB, logger *logrus.Logger) *FeatureController {
	return &FeatureController{DB: db, Logger: logger}
}

type FeatureRequest struct {
	Code        string `json:"code" validate:"required,max=100"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Category    string `json:"category" validate:"required,oneof=EVENTOS FINANCEIRO RELATORIOS INTEGRACAO ADMIN"`
	Active      *bool  `json:"active"`
	SortOrder   int    `json:"sort_order"`
}

func (fc *FeatureController) ListFeatures(c *fiber.Ctx) error {
	var features []models.Feature
	if err := fc.DB.Order("sort_order ASC").Find(&features).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load features", err)
	}
	return c.JSON(utils.SuccessResponse(features))
}

func (fc *FeatureController) CreateFeature(c *fiber.Ctx) error {
	var req FeatureRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	// Codes are stable identities; reusing one for a different capability
	// would silently change what old plans grant.
	var existing models.Feature
	if err := fc.DB.Where("code = ?", req.Code).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Feature code already exists", nil)
	}

	feature := models.Feature{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Active:      true,
		SortOrder:   req.SortOrder,
	}
	if req.Active != nil {
		feature.Active = *req.Active
	}

	if err := fc.DB.Create(&feature).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create feature", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(feature))
}

func (fc *FeatureController) UpdateFeature(c *fiber.Ctx) error {
	var feature models.Feature
	if err := fc.DB.First(&feature, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Feature not found", err)
	}

	var req FeatureRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if req.Code != feature.Code {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Feature code cannot be changed", nil)
	}

	feature.Name = req.Name
	feature.Description = req.Description
	feature.Category = req.Category
	feature.SortOrder = req.SortOrder
	if req.Active != nil {
		feature.Active = *req.Active
	}

	if err := fc.DB.Save(&feature).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update feature", err)
	}
	return c.JSON(utils.SuccessResponse(feature))
}

// DeleteFeature removes a feature from the catalog. Once any plan
// references it the feature is only deactivated, so granted snapshots keep
// resolving (entitlement resolution drops inactive features anyway).
func (fc *FeatureController) DeleteFeature(c *fiber.Ctx) error {
	var feature models.Feature
	if err := fc.DB.First(&feature, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Feature not found", err)
	}

	var refs int64
	if err := fc.DB.Table("plan_features").Where("feature_id = ?", feature.ID).Count(&refs).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check plan references", err)
	}

	if refs > 0 {
		feature.Active = false
		if err := fc.DB.Save(&feature).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to deactivate feature", err)
		}
		return c.JSON(utils.SuccessResponse(fiber.Map{
			"deactivated": true,
			"message":     "Feature is referenced by plans and was deactivated instead of deleted",
		}))
	}

	if err := fc.DB.Delete(&feature).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete feature", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}
