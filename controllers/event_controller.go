package controller

import (
	"time"

	"eventhub/models"
	"eventhub/services"
	"eventhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type EventController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Limits *services.LimitService
}

func NewEventController(db *gorm.DB, logger *logrus.Logger) *EventController {
	return &EventController{
		DB:     db,
		Logger: logger,
		Limits: services.NewLimitService(db, logger),
	}
}

type EventRequest struct {
	Name     string     `json:"name" validate:"required,max=200"`
	Location string     `json:"location" validate:"omitempty,max=200"`
	StartsAt *time.Time `json:"starts_at"`
}

// CreateEvent is gated by the plan's event feature and monthly cap
func (ec *EventController) CreateEvent(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	check, err := ec.Limits.CanCreate(user.ID, services.ResourceEvents)
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

	var req EventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	event := models.Event{
		UserID:   user.ID,
		Name:     req.Name,
		Location: req.Location,
	}
	if req.StartsAt != nil {
		event.StartsAt = *req.StartsAt
	}

	if err := ec.DB.Create(&event).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create event", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(event))
}

func (ec *EventController) GetEvents(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var events []models.Event
	if err := ec.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&events).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load events", err)
	}
	return c.JSON(utils.SuccessResponse(events))
}
