package shared

import (
	"github.com/go-playground/form"
)

// Decoder decodes url.Values (query strings and form bodies) into tagged
// structs. Shared so every controller uses the same mode settings.
var Decoder = form.NewDecoder()

func init() {
	Decoder.SetMode(form.ModeImplicit)
}
