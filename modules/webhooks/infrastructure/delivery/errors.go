package delivery

import (
	"fmt"

	"github.com/iota-uz/hookrelay/pkg/serrors"
)

var (
	ErrInvalidConfig = serrors.NewError("WEBHOOKS_INVALID_CONFIG", "invalid delivery configuration", "")
)

func invalidConfig(msg string, args ...any) error {
	return fmt.Errorf("%w: "+msg, append([]any{ErrInvalidConfig}, args...)...)
}
