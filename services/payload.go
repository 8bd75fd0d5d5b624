package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/badoux/checkmail"
)

// Hotmart sends structurally different payloads between production and
// sandbox, and has shipped more than one nesting over time. All variants
// are modeled here as optional fields and normalized through
// normalizePayload; nothing downstream ever touches the raw shapes.

type HotmartPayload struct {
	Event        string               `json:"event"`
	ID           string               `json:"id"`
	CreationDate int64                `json:"creation_date"`
	Data         *HotmartData         `json:"data,omitempty"`
	Subscription *HotmartSubscription `json:"subscription,omitempty"` // legacy top-level shape
}

type HotmartData struct {
	Subscription *HotmartSubscription `json:"subscription,omitempty"`
	Purchase     *HotmartPurchase     `json:"purchase,omitempty"`
	Buyer        *HotmartBuyer        `json:"buyer,omitempty"`

	// Sandbox-only fields the subscription is synthesized from
	Subscriber *HotmartSubscriber `json:"subscriber,omitempty"`
	Plan       *HotmartPlan       `json:"plan,omitempty"`
	User       *HotmartUser       `json:"user,omitempty"`
}

type HotmartSubscription struct {
	SubscriberCode string             `json:"subscriber_code"`
	Status         string             `json:"status"`
	Plan           *HotmartPlan       `json:"plan,omitempty"`
	Subscriber     *HotmartSubscriber `json:"subscriber,omitempty"`
	DateNextCharge int64              `json:"date_next_charge,omitempty"` // unix millis
}

type HotmartPlan struct {
	Code string `json:"code,omitempty"`
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type HotmartSubscriber struct {
	Code  string `json:"code,omitempty"`
	Email string `json:"email,omitempty"`
}

type HotmartUser struct {
	Email string `json:"email,omitempty"`
}

type HotmartBuyer struct {
	Email string `json:"email,omitempty"`
}

type HotmartPurchase struct {
	Status         string `json:"status,omitempty"`
	DateNextCharge int64  `json:"date_next_charge,omitempty"`
}

// normalizedWebhook is the strict internal DTO every transition works
// from. If any field cannot be extracted the whole webhook is rejected;
// partial processing is never attempted.
type normalizedWebhook struct {
	SubscriberCode string
	PlanCode       string
	Email          string
	Status         string
	NextChargeAt   int64 // unix millis, zero when absent
}

// planCode prefers the explicit code, then the numeric id, then the name.
func (p *HotmartPlan) planCode() string {
	if p == nil {
		return ""
	}
	if p.Code != "" {
		return p.Code
	}
	if p.ID != 0 {
		return strconv.FormatInt(p.ID, 10)
	}
	return p.Name
}

// subscription picks the subscription block out of whichever nesting the
// provider used, synthesizing one from sandbox fields when necessary.
func (p *HotmartPayload) subscription(sandbox bool) *HotmartSubscription {
	if p.Data != nil && p.Data.Subscription != nil {
		return p.Data.Subscription
	}
	if p.Subscription != nil {
		return p.Subscription
	}
	if sandbox && p.Data != nil && p.Data.Subscriber != nil {
		sub := &HotmartSubscription{
			SubscriberCode: p.Data.Subscriber.Code,
			Plan:           p.Data.Plan,
			Subscriber:     p.Data.Subscriber,
		}
		if p.Data.Purchase != nil {
			sub.Status = p.Data.Purchase.Status
			sub.DateNextCharge = p.Data.Purchase.DateNextCharge
		}
		return sub
	}
	return nil
}

func (p *HotmartPayload) buyerEmail(sub *HotmartSubscription) string {
	if sub != nil && sub.Subscriber != nil && sub.Subscriber.Email != "" {
		return sub.Subscriber.Email
	}
	if p.Data != nil {
		if p.Data.Subscriber != nil && p.Data.Subscriber.Email != "" {
			return p.Data.Subscriber.Email
		}
		if p.Data.Buyer != nil && p.Data.Buyer.Email != "" {
			return p.Data.Buyer.Email
		}
		if p.Data.User != nil && p.Data.User.Email != "" {
			return p.Data.User.Email
		}
	}
	return ""
}

func normalizePayload(p *HotmartPayload, sandbox bool) (*normalizedWebhook, error) {
	sub := p.subscription(sandbox)
	if sub == nil {
		return nil, fmt.Errorf("payload has no subscription data")
	}
	if sub.SubscriberCode == "" {
		return nil, fmt.Errorf("payload missing subscriber code")
	}

	planCode := sub.Plan.planCode()
	if planCode == "" && p.Data != nil {
		planCode = p.Data.Plan.planCode()
	}
	if planCode == "" {
		return nil, fmt.Errorf("payload missing plan code")
	}

	email := strings.ToLower(strings.TrimSpace(p.buyerEmail(sub)))
	if email == "" {
		return nil, fmt.Errorf("payload missing buyer email")
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return nil, fmt.Errorf("payload buyer email %q is invalid", email)
	}

	return &normalizedWebhook{
		SubscriberCode: sub.SubscriberCode,
		PlanCode:       planCode,
		Email:          email,
		Status:         sub.Status,
		NextChargeAt:   sub.DateNextCharge,
	}, nil
}
