package metrics

import "go.uber.org/fx"

// Module provides process-wide metrics collectors.
var Module = fx.Provide(New)
