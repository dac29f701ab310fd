package validation

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/baseplate/querykit/internal/core/query"
)

var registerOnce sync.Once

// RegisterBindings adds the query tags (sortorder, connective, datemodes) to
// gin's binding validator. It must run before any request is bound.
func RegisterBindings() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		Register(v)
	})
}

// Register adds the query tags to v.
func Register(v *validator.Validate) {
	v.RegisterValidation("sortorder", func(fl validator.FieldLevel) bool {
		return IsSortOrder(fl.Field().String())
	})
	v.RegisterValidation("connective", func(fl validator.FieldLevel) bool {
		return IsConnective(fl.Field().String())
	})
	v.RegisterValidation("datemodes", func(fl validator.FieldLevel) bool {
		return AreDateModes(fl.Field().String())
	})
}

// IsSortOrder accepts asc, ascending, desc and descending in any case.
func IsSortOrder(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", query.Ascending, "desc", query.Descending:
		return true
	}
	return false
}

// IsConnective accepts the AND and OR spellings.
func IsConnective(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND", "&&", "OR", "||":
		return true
	}
	return false
}

// AreDateModes accepts a comma list of date modes; empty items mean the
// default mode.
func AreDateModes(s string) bool {
	for _, item := range strings.Split(s, ",") {
		if _, ok := query.ParseDateMode(item); !ok {
			return false
		}
	}
	return true
}
