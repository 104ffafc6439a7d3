package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ ClientRegistry     = (*ProviderClientRegistry)(nil)
	_ PendingAuthStore   = (*MemoryPendingAuthStore)(nil)
	_ SignOnActivitySink = (*BufferedActivitySink)(nil)
	_ SignOnActivitySink = (*MemoryActivityStore)(nil)
	_ MetricsRecorder    = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
