package model

type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

// Event is one inbound update, already stripped of transport types.
type Event struct {
	SenderID  int64
	Username  string
	FirstName string
	LastName  string
	ChatID    int64
	ChatType  ChatType
	ChatName  string
	MessageID int
	Text      string
	PhotoID   string
	Callback  *Callback
}

type Callback struct {
	ID   string
	Data string
}

type LedgerEventType string

const (
	LedgerEventReferralCredited  LedgerEventType = "referral_credited"
	LedgerEventDownlineCredited  LedgerEventType = "downline_credited"
	LedgerEventEarningsAdjusted  LedgerEventType = "earnings_adjusted"
	LedgerEventBroadcastFinished LedgerEventType = "broadcast_finished"
)

type LedgerEvent struct {
	Type    LedgerEventType `json:"type"`
	Payload map[string]any  `json:"payload,omitempty"`
}
