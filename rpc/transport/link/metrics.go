package link

import (
	"github.com/VictoriaMetrics/metrics"
)

var (
	metricBytesRead      = metrics.NewCounter("rkv_link_bytes_read_total")
	metricBytesWritten   = metrics.NewCounter("rkv_link_bytes_written_total")
	metricProtocolErrors = metrics.NewCounter("rkv_link_protocol_errors_total")
	metricForeignLinks   = metrics.NewCounter("rkv_link_foreign_engaged_total")
	metricOpenLinks      = metrics.NewCounter("rkv_link_opened_total")
	metricClosedLinks    = metrics.NewCounter("rkv_link_closed_total")
)
