package controller

import (
	"eventhub/models"
	"eventhub/services"
	"eventhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ClientController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Limits *services.LimitService
}

func NewClientController(db *gorm.DB, logger *logrus.Logger) *ClientController {
	return &ClientController{
		DB:     db,
		Logger: logger,
		Limits: services.NewLimitService(db, logger),
	}
}

type ClientRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=30"`
}

// CreateClient is gated by the plan's client feature and yearly cap
func (cc *ClientController) CreateClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	check, err := cc.Limits.CanCreate(user.ID, services.ResourceClients)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check creation gate", err)
	}
	if !check.Allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   check.Reason,
			"limit":   check,
		})
	}

	var req ClientRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	client := models.Client{
		UserID: user.ID,
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
	}

	if err := cc.DB.Create(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create client", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(client))
}

func (cc *ClientController) GetClients(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var clients []models.Client
	if err := cc.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&clients).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load clients", err)
	}
	return c.JSON(utils.SuccessResponse(clients))
}
