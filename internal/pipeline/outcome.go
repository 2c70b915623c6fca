package pipeline

import "github.com/joao-fontenele/commentorder/internal/domain"

type Kind string

const (
	KindIgnoredReply       Kind = "ignored_reply"
	KindNotACommand        Kind = "not_a_command"
	KindDuplicate          Kind = "duplicate"
	KindNoLinkedProduct    Kind = "no_linked_product"
	KindProfileIncomplete  Kind = "profile_incomplete"
	KindOutOfStock         Kind = "out_of_stock"
	KindInsufficientStock  Kind = "insufficient_stock"
	KindVariantRequired    Kind = "variant_required"
	KindUnknownVariant     Kind = "unknown_variant"
	KindOrderLimit         Kind = "order_limit"
	KindOrderFailed        Kind = "order_failed"
	KindLedgerInconsistent Kind = "ledger_inconsistent"
	KindOrderCreated       Kind = "order_created"
	KindOrderAccumulated   Kind = "order_accumulated"
)

// Outcome reports what the pipeline did with one comment.
type Outcome struct {
	Kind    Kind                 `json:"kind"`
	Reply   string               `json:"reply,omitempty"`
	Entry   *domain.LedgerEntry  `json:"ledger_entry,omitempty"`
	Receipt *domain.OrderReceipt `json:"receipt,omitempty"`
}

func (o Outcome) Accepted() bool {
	return o.Kind == KindOrderCreated || o.Kind == KindOrderAccumulated
}
