package logging

// Standardized field names for structured logging so log output stays
// consistent and filterable across pipeline stages.
const (
	FieldFile       = "file_path"
	FieldBank       = "bank"
	FieldEncoding   = "encoding"
	FieldDelimiter  = "delimiter"
	FieldStrategy   = "strategy"
	FieldConfidence = "confidence"
	FieldRow        = "row"
	FieldColumn     = "column"
	FieldCount      = "count"
	FieldReason     = "reason"
	FieldCategory   = "category"
	FieldPairID     = "pair_id"
	FieldDuration   = "duration_ms"
)
