package upstream

// Wire types for the counts API. Kept separate from the internal types so
// upstream schema changes stay contained here.

type providerCountBucket struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	TweetCount int64  `json:"tweet_count"`
}

type providerCountsMeta struct {
	TotalTweetCount int64 `json:"total_tweet_count"`
}

type providerCountsResponse struct {
	Data []providerCountBucket `json:"data"`
	Meta providerCountsMeta    `json:"meta"`
}

type providerErrorDetail struct {
	Message string `json:"message"`
}

type providerErrorResponse struct {
	Title  string                `json:"title"`
	Detail string                `json:"detail"`
	Type   string                `json:"type"`
	Errors []providerErrorDetail `json:"errors"`
}

// message picks the most specific human-readable detail available.
func (e providerErrorResponse) message() string {
	if len(e.Errors) > 0 && e.Errors[0].Message != "" {
		return e.Errors[0].Message
	}
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}
