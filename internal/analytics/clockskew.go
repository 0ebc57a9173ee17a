package analytics

import "time"

// normalizeClockSkew works around seed data stamped one year ahead of the
// server clock. When the newest order's year is later than now's year, every
// order timestamp is moved back exactly one year. The input is not modified.
//
// TODO: remove once the upstream seed data is re-stamped; gated by
// ANALYTICS_NORMALIZE_CLOCK_SKEW until then.
func normalizeClockSkew(orders []OrderRow, now time.Time) []OrderRow {
	if len(orders) == 0 {
		return orders
	}
	latest := orders[0].CreatedAt
	for _, order := range orders[1:] {
		if order.CreatedAt.After(latest) {
			latest = order.CreatedAt
		}
	}
	if latest.In(now.Location()).Year() <= now.Year() {
		return orders
	}

	shifted := make([]OrderRow, len(orders))
	for i, order := range orders {
		order.CreatedAt = order.CreatedAt.AddDate(-1, 0, 0)
		shifted[i] = order
	}
	return shifted
}
