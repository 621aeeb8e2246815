package metrics

import "github.com/tphakala/pcmplay/internal/logger"

var log = logger.Global().Module("metrics")
