package fyers

import "main/internal/schema"

// Fyers publishes small-integer order statuses.
const (
	statusCancelled = 1
	statusTraded    = 2
	statusTransit   = 4
	statusRejected  = 5
	statusPending   = 6
)

func normalizeStatus(raw int) schema.OrderStatus {
	switch raw {
	case statusTraded:
		return schema.StatusFilled
	case statusCancelled, statusRejected:
		return schema.StatusClosed
	default:
		return schema.StatusOther
	}
}
