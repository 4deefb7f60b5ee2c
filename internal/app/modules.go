package app

import (
	"github.com/specialistvlad/gridflow/internal/registry"
	"github.com/specialistvlad/gridflow/modules/arith"
	"github.com/specialistvlad/gridflow/modules/print"
	"github.com/specialistvlad/gridflow/modules/text"
)

// coreModules lists every module compiled into the gridflow binary.
var coreModules = []registry.Module{
	&text.Module{},
	&arith.Module{},
	&print.Module{},
}
