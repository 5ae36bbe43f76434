package users

import "time"

type Membership string

const (
	MembershipBasic   Membership = "basic"
	MembershipPremium Membership = "premium"
)

type User struct {
	ID            string
	Email         string
	PasswordHash  []byte
	Membership    Membership
	BillingActive bool
	CreatedAt     time.Time
}
