package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Map engine
	MetricRenderLatency  = "map.render_latency"
	MetricGestureLatency = "map.gesture_latency"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricTripsLogged     = "business.trips_logged"
	MetricGeocodeBacklog  = "business.geocode_backlog"
	MetricMapSessionsPeak = "business.map_sessions_peak"
)
