package model

// JoinStats counts the outcomes of one match/winner-hint join.
type JoinStats struct {
	Matches             int `json:"matches"`
	JoinedByKey         int `json:"joinedByKey"`
	JoinedByTxFallback  int `json:"joinedByTxFallback"`
	Unresolved          int `json:"unresolved"`
	Hints               int `json:"hints"`
	HintsUnconfirmed    int `json:"hintsUnconfirmed"`
	HintsDuplicate      int `json:"hintsDuplicate"`
	MatchDecodeFailures int `json:"matchDecodeFailures"`
	HintDecodeFailures  int `json:"hintDecodeFailures"`
}

// RunStats counts the outcomes of one resolver run.
type RunStats struct {
	Pages       int `json:"pages"`
	Summaries   int `json:"summaries"`
	Identifiers int `json:"identifiers"`
	CacheHits   int `json:"cacheHits"`
	Resolved    int `json:"resolved"`
	Unknown     int `json:"unknown"`
	ScanErrors  int `json:"scanErrors"`
}
