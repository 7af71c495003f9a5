package migrate

import (
	"github.com/VictoriaMetrics/metrics"
)

var (
	metricKeysMoved  = metrics.NewCounter("rkv_migrate_keys_moved_total")
	metricBytesMoved = metrics.NewCounter("rkv_migrate_bytes_moved_total")
	metricStepErrors = metrics.NewCounter("rkv_migrate_step_errors_total")
	metricFinished   = metrics.NewCounter("rkv_migrate_finished_total")
)
