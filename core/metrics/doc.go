// Package metrics defines the recorder interfaces used to observe the
// dispatch board. Sinks such as PromSink and InfluxSink record committed
// operations, rejections and guide loads and can be combined with
// NewMultiSink. NewMetricsSink builds the configured sinks from the
// factory registry and returns a MultiSink when several are configured.
package metrics
