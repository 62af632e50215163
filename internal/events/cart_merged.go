package events

import (
	"fmt"
	"time"
)

const (
	EventTypeCartMerged = "CartMerged"
	cartMergedSchema    = "ecommerce.cart.merged.v1"
)

// CartMergedPayload describes a guest cart folded into a user cart at sign-in.
type CartMergedPayload struct {
	UserID      string    `json:"userId"`
	CartID      string    `json:"cartId"`
	GuestID     string    `json:"guestId"`
	MergedLines int       `json:"mergedLines"`
	MergedUnits int       `json:"mergedUnits"`
	Timestamp   time.Time `json:"timestamp"`
}

type CartMergedEvent struct {
	EventEnvelope
	Payload CartMergedPayload `json:"payload"`
}

func (e CartMergedEvent) Validate() error {
	if err := e.EventEnvelope.Validate(EventTypeCartMerged, 1); err != nil {
		return err
	}
	if e.Payload.UserID == "" || e.Payload.CartID == "" || e.Payload.GuestID == "" {
		return fmt.Errorf("payload requires userId, cartId and guestId")
	}
	if e.Payload.MergedLines < 0 || e.Payload.MergedUnits < 0 {
		return fmt.Errorf("payload counts must not be negative")
	}
	return nil
}
