package notify

import (
	"github.com/carelink/patient-admin/pkg/logger"
	"github.com/carelink/patient-admin/pkg/monitoring"
)

// LogNotifier emits transient user-facing notifications through the
// structured log stream. Delivery to connected clients is handled by the
// notification relay; this side only records and forwards.
type LogNotifier struct {
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector
}

// NewLogNotifier creates a new log-backed notifier. metrics may be nil.
func NewLogNotifier(log *logger.Logger, metrics *monitoring.MetricsCollector) *LogNotifier {
	return &LogNotifier{
		logger:  log,
		metrics: metrics,
	}
}

// Success emits a success notification
func (n *LogNotifier) Success(message, description string) {
	n.logger.WithFields(map[string]interface{}{
		"notification": true,
		"kind":         "success",
		"description":  description,
	}).Info(message)

	if n.metrics != nil {
		n.metrics.RecordNotification("success")
	}
}

// Error emits an error notification
func (n *LogNotifier) Error(message, description string) {
	n.logger.WithFields(map[string]interface{}{
		"notification": true,
		"kind":         "error",
		"description":  description,
	}).Warn(message)

	if n.metrics != nil {
		n.metrics.RecordNotification("error")
	}
}
