package server

import (
	"github.com/VictoriaMetrics/metrics"
)

var (
	metricRequests     = metrics.NewCounter("rkv_server_requests_total")
	metricClientErrors = metrics.NewCounter("rkv_server_client_errors_total")
	metricServerErrors = metrics.NewCounter("rkv_server_errors_total")
	metricAccepted     = metrics.NewCounter("rkv_server_links_accepted_total")
	metricDropped      = metrics.NewCounter("rkv_server_links_dropped_total")
)
