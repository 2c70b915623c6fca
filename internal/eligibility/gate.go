// Package eligibility decides whether a buyer's profile is complete enough to
// place an order.
package eligibility

import (
	"context"
	"fmt"
	"strings"

	"github.com/joao-fontenele/commentorder/internal/domain"
)

type Field string

const (
	FieldPhone    Field = "phone"
	FieldAddress  Field = "address"
	FieldShipping Field = "shipping method"
)

// RequiredFields lists the profile fields checked, in reporting order.
var RequiredFields = []Field{FieldPhone, FieldAddress, FieldShipping}

type Result struct {
	Missing []Field
}

func (r Result) Valid() bool {
	return len(r.Missing) == 0
}

// MissingNames returns the missing fields as plain strings.
func (r Result) MissingNames() []string {
	names := make([]string, len(r.Missing))
	for i, f := range r.Missing {
		names[i] = string(f)
	}
	return names
}

// Evaluate checks a profile. A nil profile is missing every required field.
func Evaluate(p *domain.Profile) Result {
	if p == nil {
		return Result{Missing: append([]Field(nil), RequiredFields...)}
	}

	var missing []Field
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, FieldPhone)
	}
	if strings.TrimSpace(p.Address) == "" {
		missing = append(missing, FieldAddress)
	}
	if strings.TrimSpace(string(p.Shipping)) == "" {
		missing = append(missing, FieldShipping)
	}
	return Result{Missing: missing}
}

type ProfileReader interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

type Gate struct {
	profiles ProfileReader
}

func NewGate(profiles ProfileReader) *Gate {
	return &Gate{profiles: profiles}
}

// Check loads the buyer's profile and evaluates it. The returned profile is
// nil when the buyer has none on file.
func (g *Gate) Check(ctx context.Context, buyerID string) (*domain.Profile, Result, error) {
	profile, err := g.profiles.Get(ctx, buyerID)
	if err != nil {
		return nil, Result{}, fmt.Errorf("load profile %s: %w", buyerID, err)
	}
	return profile, Evaluate(profile), nil
}
