package kite

import "main/internal/schema"

// Kite publishes symbolic order statuses. Everything the engine needs
// collapses into the three-way classification here; raw strings never
// cross this boundary.
func normalizeStatus(raw string) schema.OrderStatus {
	switch raw {
	case "COMPLETE":
		return schema.StatusFilled
	case "CANCELLED", "CANCELLED AMO", "REJECTED":
		return schema.StatusClosed
	default:
		// OPEN, TRIGGER PENDING, MODIFIED, UPDATE, VALIDATION PENDING...
		return schema.StatusOther
	}
}
