package model

// JoinState is the terminal state of a match after winner attribution.
type JoinState string

var (
	JoinedByKey        JoinState = "joined-by-key"
	JoinedByTxFallback JoinState = "joined-by-tx-fallback"
	JoinUnresolved     JoinState = "unresolved"
)

// MatchRecord is a decoded match event with an optional attributed winner.
// Winner, when set, equals PlayerA or PlayerB.
type MatchRecord struct {
	MatchID    Identifier `json:"matchId"`
	PlayerA    string     `json:"playerA"`
	PlayerB    string     `json:"playerB"`
	ResultCode *uint64    `json:"resultCode"`
	Winner     *string    `json:"winner"`
	Block      uint64     `json:"block"`
	TxHash     string     `json:"txHash"`
	LogIndex   uint       `json:"logIndex"`
	Join       JoinState  `json:"join"`
}

// HasPlayer reports whether addr is one of the two participants.
func (m MatchRecord) HasPlayer(addr string) bool {
	addr = NormalizeAddress(addr)
	return addr != "" && (addr == m.PlayerA || addr == m.PlayerB)
}

// WinnerHint is a decoded winner-hint event used to build the join index.
type WinnerHint struct {
	Identifier    Identifier
	WinnerAddress string
	TxHash        string
}
