package domain

type ShippingMethod string

const (
	ShippingDelivery         ShippingMethod = "delivery"
	ShippingPickup           ShippingMethod = "pickup"
	ShippingConvenienceStore ShippingMethod = "convenience_store"
)

func (m ShippingMethod) Label() string {
	switch m {
	case ShippingDelivery:
		return "Home delivery"
	case ShippingPickup:
		return "Store pickup"
	case ShippingConvenienceStore:
		return "Convenience store pickup"
	case "":
		return "Not set"
	}
	return string(m)
}

type Profile struct {
	UserID      string         `json:"user_id"`
	DisplayName string         `json:"display_name"`
	Phone       string         `json:"phone"`
	Address     string         `json:"address"`
	Shipping    ShippingMethod `json:"shipping_method"`
	MessagingID string         `json:"messaging_id,omitempty"`
}
