package aggregation

// Merge operators for combining two partial aggregates of the same key.
const (
	OpSum = "sum"
	OpMin = "min"
	OpMax = "max"
	OpOr  = "or"
)
