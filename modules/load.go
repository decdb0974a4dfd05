package modules

import (
	"github.com/iota-uz/hookrelay/modules/webhooks"
	"github.com/iota-uz/hookrelay/pkg/application"
)

var BuiltInModules = []application.Module{
	webhooks.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
