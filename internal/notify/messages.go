package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	NoLinkedProductText = "This post has no associated product, so we could not take your order."
	OutOfStockText      = "Sorry, this product is out of stock."
	OrderFailedText     = "Sorry, we could not place your order right now. Please try again later."
)

func ProfileIncompleteText(missing []string) string {
	return fmt.Sprintf("Please complete your profile before ordering. Missing: %s.", strings.Join(missing, ", "))
}

func InsufficientStockText(available int) string {
	if available == 1 {
		return "Sorry, only 1 unit is available."
	}
	return fmt.Sprintf("Sorry, only %d units are available.", available)
}

func OrderLimitText(limit, ordered int) string {
	if ordered == 0 {
		return fmt.Sprintf("Sorry, a single order can hold at most %d units.", limit)
	}
	return fmt.Sprintf("Sorry, a single order can hold at most %d units and you already have %d.", limit, ordered)
}

func VariantRequiredText(options []string) string {
	return fmt.Sprintf("Please choose a variant: %s. For example: +1 %s", strings.Join(options, ", "), options[0])
}

func UnknownVariantText(variant string, options []string) string {
	return fmt.Sprintf("%q is not available. Options: %s.", variant, strings.Join(options, ", "))
}

func describe(quantity int, variant string) string {
	if variant == "" {
		return fmt.Sprintf("%d", quantity)
	}
	return fmt.Sprintf("%d (%s)", quantity, variant)
}

func OrderCreatedText(quantity int, variant string, total decimal.Decimal) string {
	return fmt.Sprintf("Order received: %s. Total: %s.", describe(quantity, variant), total.StringFixed(2))
}

func OrderAccumulatedText(added int, variant string, cumulative int, total decimal.Decimal) string {
	return fmt.Sprintf("Added %s to your order. You now have %d in total. Total: %s.",
		describe(added, variant), cumulative, total.StringFixed(2))
}

func BuyerConfirmationText(product string, c Confirmation) string {
	return fmt.Sprintf("Thanks for your order of %s. Quantity: %d. Total: %s. Order: %s",
		product, c.Receipt.Quantity, c.Receipt.Total.StringFixed(2), c.Receipt.OrderID)
}

func SellerAlertText(buyer, product, shipping string, c Confirmation) string {
	return fmt.Sprintf("New order from %s: %s x%d, total %s. Shipping: %s.",
		buyer, product, c.Receipt.Quantity, c.Receipt.Total.StringFixed(2), shipping)
}
