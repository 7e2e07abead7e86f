package orders

import "smartdine/models"

// transitions lists the statuses reachable from each state. Forward moves
// along the kitchen path may skip steps; Cancelled is only reachable before
// the food is ready. Terminal states have no entry.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPending:   {models.StatusPreparing, models.StatusReady, models.StatusServed, models.StatusCancelled},
	models.StatusPreparing: {models.StatusReady, models.StatusServed, models.StatusCancelled},
	models.StatusReady:     {models.StatusServed},
}

// CanTransition reports whether an order in status from may move to to.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// notifiesGuest reports whether reaching status s is pushed to the table channel.
func notifiesGuest(s models.OrderStatus) bool {
	return s == models.StatusReady || s == models.StatusServed
}
