package app

import (
	"github.com/vk/ladle/internal/registry"
	"github.com/vk/ladle/modules/delay"
	"github.com/vk/ladle/modules/env_vars"
	"github.com/vk/ladle/modules/http_request"
	"github.com/vk/ladle/modules/print"
	"github.com/vk/ladle/modules/socketio"
	"github.com/vk/ladle/modules/transform"
)

// coreModules is the definitive list of all capability modules compiled
// into the ladle binary.
var coreModules = []registry.Module{
	&delay.Module{},
	&env_vars.Module{},
	&http_request.Module{},
	&print.Module{},
	&socketio.Module{},
	&transform.Module{},
}
