package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPIRequest      = "APIRequest"
	MetricAPILatency      = "APILatency"
	MetricRefreshCycle    = "RefreshCycle"
	MetricRefreshDuration = "RefreshDuration"
	MetricReadingIngested = "ReadingIngested"

	// Dimension Keys
	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "Status"
	DimOutcome  = "Outcome"

	// Metric Namespace
	MetricNamespace = "PlantWatch"
)
