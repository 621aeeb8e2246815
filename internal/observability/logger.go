package observability

import "github.com/tphakala/pcmplay/internal/logger"

// Package-level logger; all logging in this package uses it.
var log = logger.Global().Module("telemetry")
