package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// DemoPassword is shared by every seeded account.
const DemoPassword = "demo"

// Demo accounts, one per permission outcome.
const (
	DemoPremiumEmail = "premium@example.com"
	DemoBasicEmail   = "basic@example.com"
	DemoLapsedEmail  = "lapsed@example.com"
)

// Seed registers the demo accounts. Accounts that already exist are kept.
func (s *Service) Seed(ctx context.Context) error {
	accounts := []struct {
		email         string
		membership    Membership
		billingActive bool
	}{
		{DemoPremiumEmail, MembershipPremium, true},
		{DemoBasicEmail, MembershipBasic, true},
		{DemoLapsedEmail, MembershipPremium, false},
	}

	for _, a := range accounts {
		_, err := s.Register(ctx, a.email, DemoPassword, a.membership, a.billingActive)
		if err != nil && !errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("seed %s: %w", a.email, err)
		}
	}
	return nil
}
