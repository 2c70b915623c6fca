// Package command parses buyer comments such as "+1" or "+2 red" into order
// commands.
package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joao-fontenele/commentorder/internal/domain"
)

// Command is a parsed order intent. Variant is empty when the comment named
// no variant.
type Command struct {
	Quantity int
	Variant  string
}

func (c Command) HasVariant() bool {
	return c.Variant != ""
}

// Rules are tried in order; the first match wins.
var (
	spacedVariant   = regexp.MustCompile(`^\+(\d+)\s+(.+)$`)
	attachedVariant = regexp.MustCompile(`^\+(\d+)([^\s\d].*)$`)
	bareQuantity    = regexp.MustCompile(`^\+(\d+)$`)
	embedded        = regexp.MustCompile(`\+(\d+)(?:\s*(.*))?`)
)

// Parse returns the order command carried by message. ok is false when the
// message is not an order command, including quantities that are zero or
// larger than domain.MaxQuantity.
func Parse(message string) (cmd Command, ok bool) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Command{}, false
	}

	var m []string
	switch {
	case spacedVariant.MatchString(message):
		m = spacedVariant.FindStringSubmatch(message)
	case attachedVariant.MatchString(message):
		m = attachedVariant.FindStringSubmatch(message)
	case bareQuantity.MatchString(message):
		m = bareQuantity.FindStringSubmatch(message)
	default:
		m = embedded.FindStringSubmatch(message)
	}
	if m == nil {
		return Command{}, false
	}

	quantity, err := strconv.Atoi(m[1])
	if err != nil || quantity <= 0 || quantity > domain.MaxQuantity {
		return Command{}, false
	}

	cmd = Command{Quantity: quantity}
	if len(m) > 2 {
		cmd.Variant = strings.TrimSpace(m[2])
	}
	return cmd, true
}
