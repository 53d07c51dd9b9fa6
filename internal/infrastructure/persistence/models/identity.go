package models

import (
	"time"

	"github.com/blibbers/vibekit/internal/domain/identity"
)

// UserModel is the persistence model for identity.User.
// The subscription record is stored inline; an empty SubscriptionID means none.
type UserModel struct {
	BaseModel
	Email                        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName                    string     `gorm:"type:varchar(100)"`
	LastName                     string     `gorm:"type:varchar(100)"`
	Role                         string     `gorm:"type:varchar(20);not null;default:'user'"`
	BillingCustomerID            *string    `gorm:"type:varchar(255);uniqueIndex"`
	SubscriptionID               string     `gorm:"type:varchar(255);index"`
	SubscriptionStatus           string     `gorm:"type:varchar(32)"`
	SubscriptionCurrentPeriodEnd *time.Time `gorm:"column:subscription_current_period_end"`
	SubscriptionPlan             string     `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the model to a domain user
func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		BaseEntity:        m.toEntity(),
		Email:             m.Email,
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		Role:              identity.Role(m.Role),
		BillingCustomerID: derefString(m.BillingCustomerID),
	}
	if m.SubscriptionID != "" {
		sub := identity.Subscription{
			ID:     m.SubscriptionID,
			Status: identity.SubscriptionStatus(m.SubscriptionStatus),
			Plan:   m.SubscriptionPlan,
		}
		if m.SubscriptionCurrentPeriodEnd != nil {
			sub.CurrentPeriodEnd = m.SubscriptionCurrentPeriodEnd.UTC()
		}
		u.Subscription = &sub
	}
	return u
}

// UserModelFromDomain converts a domain user to its model
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		BaseModel:         baseFromEntity(u.BaseEntity),
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Role:              string(u.Role),
		BillingCustomerID: nullableString(u.BillingCustomerID),
	}
	if u.Subscription != nil {
		m.SubscriptionID = u.Subscription.ID
		m.SubscriptionStatus = string(u.Subscription.Status)
		m.SubscriptionCurrentPeriodEnd = periodEndColumn(u.Subscription.CurrentPeriodEnd)
		m.SubscriptionPlan = u.Subscription.Plan
	}
	return m
}

// SubscriptionColumns returns every subscription column, so an update built
// from it always replaces the whole record. A nil sub yields cleared columns.
func SubscriptionColumns(sub *identity.Subscription) map[string]any {
	if sub == nil {
		return map[string]any{
			"subscription_id":                 "",
			"subscription_status":             "",
			"subscription_current_period_end": (*time.Time)(nil),
			"subscription_plan":               "",
		}
	}
	return map[string]any{
		"subscription_id":                 sub.ID,
		"subscription_status":             string(sub.Status),
		"subscription_current_period_end": periodEndColumn(sub.CurrentPeriodEnd),
		"subscription_plan":               sub.Plan,
	}
}

func periodEndColumn(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
