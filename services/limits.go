package services

import (
	"fmt"
	"time"

	"eventhub/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Resource kinds accepted by CanCreate
const (
	ResourceEvents  = "events"
	ResourceClients = "clients"
)

// UserLimits is the usage snapshot computed on every read; nothing here is
// cached or persisted. Nil caps mean unlimited, zero caps mean zero allowed.
type UserLimits struct {
	EventsThisMonth int64 `json:"events_this_month"`
	MaxEvents       *int  `json:"max_events,omitempty"`
	ClientsThisYear int64 `json:"clients_this_year"`
	MaxClients      *int  `json:"max_clients,omitempty"`
	AccountUsers    int64 `json:"account_users"`
	MaxUsers        *int  `json:"max_users,omitempty"`
	StorageUsedMB   int64 `json:"storage_used_mb"`
	MaxStorageMB    *int  `json:"max_storage_mb,omitempty"`
}

// LimitCheck is the answer to "may this user create one more X"
type LimitCheck struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Limit     *int   `json:"limit,omitempty"`
	Used      int64  `json:"used"`
	Remaining *int64 `json:"remaining,omitempty"`
}

// LimitService computes current consumption against plan caps. Usage is
// recomputed from the source records on each call rather than kept in
// incremental counters, which stays correct under concurrent writes.
type LimitService struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	Entitlements *EntitlementService
}

func NewLimitService(db *gorm.DB, logger *logrus.Logger) *LimitService {
	return &LimitService{
		DB:           db,
		Logger:       logger,
		Entitlements: NewEntitlementService(db, logger),
	}
}

func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func yearStart(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
}

// UserLimits counts events created this calendar month and clients created
// this calendar year against the plan's caps. Without a subscription the
// snapshot is all zeros with no caps.
func (s *LimitService) UserLimits(userID uint) (*UserLimits, error) {
	if _, err := s.Entitlements.getUser(userID); err != nil {
		return nil, err
	}

	limits := &UserLimits{}

	sub, err := s.Entitlements.ActiveSubscription(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return limits, nil
	}

	if sub.PlanID != nil {
		var plan models.Plan
		if err := s.DB.First(&plan, *sub.PlanID).Error; err == nil {
			limits.MaxEvents = plan.MaxEvents
			limits.MaxClients = plan.MaxClients
			limits.MaxUsers = plan.MaxUsers
			limits.MaxStorageMB = plan.MaxStorageMB
		}
	}

	now := time.Now()
	if err := s.DB.Model(&models.Event{}).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, monthStart(now), now).
		Count(&limits.EventsThisMonth).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Client{}).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, yearStart(now), now).
		Count(&limits.ClientsThisYear).Error; err != nil {
		return nil, err
	}

	limits.AccountUsers = 1
	return limits, nil
}

// CheckEventLimit checks the monthly event cap. An absent cap allows
// unconditionally; a zero cap blocks immediately.
func (s *LimitService) CheckEventLimit(userID uint) (*LimitCheck, error) {
	limits, err := s.UserLimits(userID)
	if err != nil {
		return nil, err
	}
	return checkAgainst(limits.EventsThisMonth, limits.MaxEvents), nil
}

// CheckClientLimit checks the yearly client cap
func (s *LimitService) CheckClientLimit(userID uint) (*LimitCheck, error) {
	limits, err := s.UserLimits(userID)
	if err != nil {
		return nil, err
	}
	return checkAgainst(limits.ClientsThisYear, limits.MaxClients), nil
}

func checkAgainst(used int64, limit *int) *LimitCheck {
	if limit == nil {
		return &LimitCheck{Allowed: true, Used: used}
	}
	remaining := int64(*limit) - used
	if remaining < 0 {
		remaining = 0
	}
	return &LimitCheck{
		Allowed:   used < int64(*limit),
		Limit:     limit,
		Used:      used,
		Remaining: &remaining,
	}
}

// CanCreate is the composite gate used before creating events or clients.
// The plan must grant the corresponding feature at all before the numeric
// cap is consulted; a plan without the feature blocks creation regardless
// of any cap, and a plan with the feature but no cap allows unlimited.
func (s *LimitService) CanCreate(userID uint, kind string) (*LimitCheck, error) {
	var featureCode string
	var check func(uint) (*LimitCheck, error)
	var noun string

	switch kind {
	case ResourceEvents:
		featureCode = models.FeatureCodeLimitedEvents
		check = s.CheckEventLimit
		noun = "eventos"
	case ResourceClients:
		featureCode = models.FeatureCodeLimitedClients
		check = s.CheckClientLimit
		noun = "clientes"
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}

	granted, err := s.Entitlements.HasFeature(userID, featureCode)
	if err != nil {
		return nil, err
	}
	if !granted {
		return &LimitCheck{
			Allowed: false,
			Reason:  fmt.Sprintf("Seu plano não permite criar %s", noun),
		}, nil
	}

	result, err := check(userID)
	if err != nil {
		return nil, err
	}
	if !result.Allowed {
		result.Reason = fmt.Sprintf("Limite de %s do plano atingido", noun)
	}
	return result, nil
}
