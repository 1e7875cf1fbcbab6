package climate

// Record is a regional index value at a given time, ready for export.
type Record struct {
	Timestamp int64 // unix milliseconds
	Region    string
	Value     float64
}
