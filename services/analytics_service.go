// services/analytics_service.go
package services

import (
	"context"
	"fmt"

	"github.com/mercadopro/mercadopro_backend/models"
)

// AnalyticsService aggregates platform activity for the back office
type AnalyticsService struct {
	users     UserStore
	orders    OrderStore
	referrals ReferralStore
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(users UserStore, orders OrderStore, referrals ReferralStore) *AnalyticsService {
	return &AnalyticsService{
		users:     users,
		orders:    orders,
		referrals: referrals,
	}
}

// Overview aggregates user counts per role, order totals and the commission
// ledger into one snapshot
func (s *AnalyticsService) Overview(ctx context.Context) (*models.AnalyticsOverview, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	orderCount, revenue, err := s.orders.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to total orders: %w", err)
	}

	referrals, err := s.referrals.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}

	overview := &models.AnalyticsOverview{
		UsersByRole:  byRole,
		TotalOrders:  orderCount,
		TotalRevenue: roundMoney(revenue),
	}
	for _, r := range referrals {
		overview.TotalReferrals++
		overview.TotalCommissions += r.Commission
		if r.Status == models.ReferralStatusPaid {
			overview.PaidCommissions += r.Commission
		} else {
			overview.PendingCommissions += r.Commission
		}
	}
	overview.TotalCommissions = roundMoney(overview.TotalCommissions)
	overview.PendingCommissions = roundMoney(overview.PendingCommissions)
	overview.PaidCommissions = roundMoney(overview.PaidCommissions)
	return overview, nil
}
