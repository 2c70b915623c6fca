// Package inventory validates a requested quantity and variant against a
// product snapshot.
package inventory

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/joao-fontenele/commentorder/internal/domain"
)

// Unbounded is reported as the available quantity of products that do not
// track stock.
const Unbounded = math.MaxInt

var ErrOutOfStock = errors.New("out of stock")

type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}

type VariantRequiredError struct {
	Options []string
}

func (e *VariantRequiredError) Error() string {
	return fmt.Sprintf("variant required: one of %s", strings.Join(e.Options, ", "))
}

type UnknownVariantError struct {
	Variant string
	Options []string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown variant %q: one of %s", e.Variant, strings.Join(e.Options, ", "))
}

// OrderLimitError means the order would exceed the largest quantity a single
// order can hold. Ordered is what the buyer already has on the order.
type OrderLimitError struct {
	Max     int
	Ordered int
}

func (e *OrderLimitError) Error() string {
	return fmt.Sprintf("order limit: at most %d units, %d already ordered", e.Max, e.Ordered)
}

// Available returns how many units can still be ordered.
func Available(p domain.Product) int {
	if !p.TrackStock {
		return Unbounded
	}
	return max(p.Stock, 0)
}

// CheckStock validates the incremental quantity of one command.
func CheckStock(p domain.Product, quantity int) error {
	available := Available(p)
	if available == 0 {
		return ErrOutOfStock
	}
	if quantity > available {
		return &InsufficientStockError{Available: available}
	}
	return CheckOrderLimit(p, 0, quantity)
}

// CheckOrderLimit validates that adding quantity to the ordered units keeps
// the order within p.MaxOrderQuantity.
func CheckOrderLimit(p domain.Product, ordered, quantity int) error {
	limit := p.MaxOrderQuantity()
	if quantity > limit-ordered {
		return &OrderLimitError{Max: limit, Ordered: ordered}
	}
	return nil
}

// CheckVariant validates variant against the product's variant list and
// returns the spelling to record. Matching ignores case and surrounding
// whitespace. Products without variants accept any value unchanged.
func CheckVariant(p domain.Product, variant string) (string, error) {
	if !p.HasVariants() {
		return variant, nil
	}

	variant = strings.TrimSpace(variant)
	if variant == "" {
		return "", &VariantRequiredError{Options: p.Variants}
	}
	for _, option := range p.Variants {
		if strings.EqualFold(option, variant) {
			return option, nil
		}
	}
	return "", &UnknownVariantError{Variant: variant, Options: p.Variants}
}

// Validate runs the stock check and then the variant check.
func Validate(p domain.Product, quantity int, variant string) (string, error) {
	if err := CheckStock(p, quantity); err != nil {
		return "", err
	}
	return CheckVariant(p, variant)
}

// IsRejection reports whether err is one of the validation outcomes above.
func IsRejection(err error) bool {
	var insufficient *InsufficientStockError
	var required *VariantRequiredError
	var unknown *UnknownVariantError
	var limit *OrderLimitError
	return errors.Is(err, ErrOutOfStock) ||
		errors.As(err, &limit) ||
		errors.As(err, &insufficient) ||
		errors.As(err, &required) ||
		errors.As(err, &unknown)
}
