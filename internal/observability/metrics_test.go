package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordSessionOpened("duplexd-test")
	RecordRequest("duplexd-test", "ping", true, 2*time.Millisecond)
	RecordRequest("duplexd-test", "status", false, 5*time.Millisecond)
	RecordEvent("duplexd-test", "log")
	RecordSessionError("duplexd-test")
	RecordSessionClosed("duplexd-test")
}
