package counts

// Bucket is one hourly slice of the queried window.
type Bucket struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Count int64  `json:"count"`
}

// Payload is the JSON body served to callers. Total is a pointer so a
// stub ("count unavailable right now") serializes as null rather than 0.
type Payload struct {
	Query     string   `json:"query"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Total     *int64   `json:"total"`
	PerHour   []Bucket `json:"per_hour"`
	Note      string   `json:"note,omitempty"`
}

// ErrorResponse is the JSON body for non-200 outcomes.
type ErrorResponse struct {
	Error             string `json:"error"`
	Status            int    `json:"status,omitempty"`
	Detail            string `json:"detail,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// Stub builds a placeholder payload for a window we could not count.
func Stub(query, startTime, endTime, note string) Payload {
	return Payload{
		Query:     query,
		StartTime: startTime,
		EndTime:   endTime,
		Total:     nil,
		PerHour:   []Bucket{},
		Note:      note,
	}
}
