package services

import (
	"io"
	"testing"
	"time"

	"eventhub/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema and
// the default feature catalog seeded.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Feature{},
		&models.Plan{},
		&models.Subscription{},
		&models.WebhookEvent{},
		&models.Event{},
		&models.Client{},
	))
	require.NoError(t, models.CreateDefaultFeatures(db))
	return db
}

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func intPtr(v int) *int { return &v }

// createTestPlan builds a plan granting the given feature codes
func createTestPlan(t *testing.T, db *gorm.DB, name, code string, maxEvents, maxClients *int, featureCodes ...string) *models.Plan {
	t.Helper()

	var features []models.Feature
	if len(featureCodes) > 0 {
		require.NoError(t, db.Where("code IN ?", featureCodes).Find(&features).Error)
		require.Len(t, features, len(featureCodes))
	}

	plan := &models.Plan{
		Name:            name,
		HotmartCode:     code,
		PriceCents:      4900,
		BillingInterval: models.BillingIntervalMonthly,
		Active:          true,
		MaxEvents:       maxEvents,
		MaxClients:      maxClients,
		Features:        features,
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

// createTestSubscription snapshots the plan's features into a subscription
func createTestSubscription(t *testing.T, db *gorm.DB, user *models.User, plan *models.Plan, status string) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		UserID:                user.ID,
		PlanID:                &plan.ID,
		HotmartSubscriptionID: "sub-" + user.Email + "-" + plan.HotmartCode,
		Status:                status,
		StartedAt:             time.Now(),
		EnabledFeatureIDs:     plan.FeatureIDs(),
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func featureByCode(t *testing.T, db *gorm.DB, code string) *models.Feature {
	t.Helper()
	var feature models.Feature
	require.NoError(t, db.Where("code = ?", code).First(&feature).Error)
	return &feature
}
