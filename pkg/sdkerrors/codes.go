package sdkerrors

// Error codes for the metrics pipeline
const (
	// Setup & configuration
	CodeConfiguration       = "METRIC_CONFIGURATION_ERROR"
	CodeContentTypeInvalid  = "METRIC_CONTENT_TYPE_INVALID"
	CodeViewInvalid         = "METRIC_VIEW_INVALID"
	CodeAggregationMismatch = "METRIC_AGGREGATION_MISMATCH"

	// Instrument lifecycle
	CodeInstrumentConflict = "METRIC_INSTRUMENT_CONFLICT"
	CodeInstrumentReleased = "METRIC_INSTRUMENT_RELEASED"

	// Collection & export
	CodeReaderCapacity = "METRIC_READER_CAPACITY"
	CodeReaderShutdown = "METRIC_READER_SHUTDOWN"
	CodeSerialization  = "METRIC_SERIALIZATION_ERROR"
	CodeTransport      = "METRIC_TRANSPORT_ERROR"
)
