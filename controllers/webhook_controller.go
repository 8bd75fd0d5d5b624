package controller

import (
	"encoding/json"
	"strings"

	"eventhub/config"
	"eventhub/models"
	"eventhub/services"
	"eventhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WebhookController receives Hotmart billing webhooks. Signature
// verification happens over the raw body before any parsing; processed
// deliveries always get a well-formed 200 response so the provider does
// not retry endlessly on events we simply do not support.
type WebhookController struct {
	DB      *gorm.DB
	Logger  *logrus.Logger
	Service *services.WebhookService
}

func NewWebhookController(db *gorm.DB, logger *logrus.Logger) *WebhookController {
	return &WebhookController{
		DB:      db,
		Logger:  logger,
		Service: services.NewWebhookService(db, logger),
	}
}

func (wc *WebhookController) HandleHotmartWebhook(c *fiber.Ctx) error {
	rawBody := c.Body()
	signature := c.Get("X-Hotmart-Signature")
	sandbox := strings.EqualFold(c.Get("X-Hotmart-Environment"), "sandbox")

	if !utils.ValidateHotmartSignature(rawBody, signature, config.AppConfig.HotmartWebhookSecret) {
		wc.Logger.Warn("webhook rejected: invalid signature")
		wc.logEvent(rawBody, "", sandbox, false, false, "invalid signature")
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid webhook signature", nil)
	}

	var payload services.HotmartPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		wc.Logger.WithError(err).Warn("webhook rejected: malformed JSON")
		wc.logEvent(rawBody, "", sandbox, true, false, "malformed JSON body")
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Malformed webhook body", err)
	}

	result := wc.Service.ProcessWebhook(&payload, sandbox)
	wc.logEvent(rawBody, payload.Event, sandbox, true, result.Success, result.Message)

	return c.JSON(result)
}

// logEvent records the delivery for operational debugging; failures to
// write the log never affect the webhook response.
func (wc *WebhookController) logEvent(rawBody []byte, eventName string, sandbox, signatureValid, success bool, message string) {
	event := models.WebhookEvent{
		Provider:       "hotmart",
		EventName:      eventName,
		Payload:        rawBody,
		SignatureValid: signatureValid,
		Sandbox:        sandbox,
		Success:        success,
		Message:        message,
	}
	if err := wc.DB.Create(&event).Error; err != nil {
		wc.Logger.WithError(err).Error("failed to log webhook event")
	}
}
