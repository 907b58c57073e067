package orders

import "labrand.store/app/internal/shared/auth"

// Transition rules, one closed table per role. pending is initial;
// cancelled and refunded have no way out, delivered only the admin refund.
//
// Brand managers do not get cancellation: the upstream behaviour was never
// pinned down, so until product decides otherwise a manager who needs an
// order cancelled escalates to an admin.

// Allowed reports whether the actor's role may move an order from one status
// to another. Ownership and brand scope are checked separately by the
// service; this table is role × edge only.
func Allowed(role auth.Role, from, to Status) bool {
	switch role {
	case auth.RoleClient:
		return from == StatusPending && to == StatusCancelled
	case auth.RoleBrandManager:
		return forwardStep(from, to)
	case auth.RoleAdmin:
		if forwardStep(from, to) {
			return true
		}
		switch {
		case to == StatusCancelled:
			return from == StatusPending || from == StatusConfirmed
		case to == StatusRefunded:
			return from == StatusDelivered
		}
		return false
	default:
		return false
	}
}

// forwardStep is the fulfilment chain shared by brand managers and admins.
func forwardStep(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed
	case StatusConfirmed:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusShipped
	case StatusShipped:
		return to == StatusDelivered
	default:
		return false
	}
}

// restocksOnExit reports whether leaving this status hands allocated stock
// back. Once an order ships the goods are gone; a refund is money, not
// inventory.
func restocksOnExit(from Status) bool {
	switch from {
	case StatusPending, StatusConfirmed, StatusProcessing:
		return true
	default:
		return false
	}
}
