package domain

// JournalTag carries the journaling labels linked to a trade.
// Breakdowns join realized matches to tags through the exit trade id.
type JournalTag struct {
	TradeID  string `json:"trade_id"`
	Strategy string `json:"strategy,omitempty"`
	Emotion  string `json:"emotion,omitempty"`
}
