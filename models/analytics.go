// models/analytics.go
package models

// AnalyticsOverview is the back-office snapshot of platform activity
type AnalyticsOverview struct {
	UsersByRole        map[Role]int64 `json:"usersByRole"`
	TotalOrders        int64          `json:"totalOrders"`
	TotalRevenue       float64        `json:"totalRevenue"`
	TotalReferrals     int            `json:"totalReferrals"`
	TotalCommissions   float64        `json:"totalCommissions"`
	PendingCommissions float64        `json:"pendingCommissions"`
	PaidCommissions    float64        `json:"paidCommissions"`
}
