// Package metrics provides Prometheus collectors for pcmplay.
package metrics

import "time"

const (
	// Namespace prefixes every pcmplay metric
	Namespace = "pcmplay"

	// ShutdownTimeout bounds graceful shutdown of the metrics endpoint
	ShutdownTimeout = 5 * time.Second
)

// Label names shared by playback metrics
const (
	LabelEngineID = "engine_id"
	LabelBackend  = "backend"
)
