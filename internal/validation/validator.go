package validation

import (
	"errors"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/joao-fontenele/commentorder/internal/domain"
)

// New returns a validator with the comment event struct rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterStructValidation(commentEventStructValidation, domain.CommentEvent{})
	return v
}

// a comment can never be a reply to itself
func commentEventStructValidation(sl validatorv10.StructLevel) {
	ev := sl.Current().Interface().(domain.CommentEvent)
	if ev.ParentID != "" && ev.ParentID == ev.ID {
		sl.ReportError(ev.ParentID, "parent_id", "ParentID", "ne_id", "")
	}
}

// Fields flattens validation errors into field -> failed rule.
func Fields(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Tag()
		}
		return out
	}
	out["error"] = err.Error()
	return out
}
