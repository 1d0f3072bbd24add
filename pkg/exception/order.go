package exception

import "errors"

var (
	ErrOrderRejected           = errors.New("order: venue rejected placement")
	ErrOrderUnknownEvent       = errors.New("order: event for unregistered order")
	ErrOrderDuplicate          = errors.New("order: order already exists")
	ErrOrderNotFound           = errors.New("order: order not found")
	ErrOrderAlreadyLinked      = errors.New("order: order already has an associated order")
	ErrOrderInvalidLink        = errors.New("order: link requires two live unassociated orders")
	ErrOrderUnsupportedAction  = errors.New("order: unsupported action")
	ErrOrderEmptyResponseID    = errors.New("order: empty response order id")
	ErrOrderDecodeResponseBody = errors.New("order: decode response body")
)
