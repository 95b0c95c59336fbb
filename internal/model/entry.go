package model

import "time"

// Level is the severity of an audit entry. Levels are totally ordered:
// INFO < WARN < ERROR.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelInfo:  0,
	LevelWarn:  1,
	LevelError: 2,
}

// ParseLevel normalizes a level string. Unknown values map to INFO so a
// bad caller input degrades instead of failing.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelInfo, LevelWarn, LevelError:
		return Level(s)
	}
	return LevelInfo
}

// Valid reports whether l is one of the three defined levels.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// AtLeast reports whether l is at or above min in severity order.
func (l Level) AtLeast(min Level) bool {
	return levelRank[l] >= levelRank[min]
}

// ActionType is the coarse category of business event an entry records.
type ActionType string

const (
	ActionStreamCreation      ActionType = "stream_creation"
	ActionContractInteraction ActionType = "contract_interaction"
	ActionMonitoring          ActionType = "monitoring"
	ActionScheduling          ActionType = "scheduling"
	ActionSystem              ActionType = "system"
)

// Valid reports whether a is one of the defined action types.
func (a ActionType) Valid() bool {
	switch a {
	case ActionStreamCreation, ActionContractInteraction, ActionMonitoring, ActionScheduling, ActionSystem:
		return true
	}
	return false
}

// Context carries arbitrary structured fields attached to an entry. The
// values are restricted to the JSON union (string, number, bool, nil,
// []any, map[string]any); redaction is a structural match over that union.
type Context map[string]any

// AuditEntry is the unit of record. ID and CreatedAt are assigned by the
// store on durable write and are empty before persistence. Timestamp is
// event time; CreatedAt is write time.
type AuditEntry struct {
	ID              string     `json:"id,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
	Level           Level      `json:"log_level"`
	Message         string     `json:"message"`
	ActionType      ActionType `json:"action_type"`
	Context         Context    `json:"context,omitempty"`
	Employer        string     `json:"employer,omitempty"`
	TransactionHash string     `json:"transaction_hash,omitempty"`
	BlockNumber     int64      `json:"block_number,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	ErrorCode       string     `json:"error_code,omitempty"`
	ErrorStack      string     `json:"error_stack,omitempty"`
	CreatedAt       time.Time  `json:"created_at,omitempty"`
}
