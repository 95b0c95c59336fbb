package dto

// Domain event parameter shapes accepted by the audit entry builders.
// They arrive from the scheduler, the treasury monitor, the contract
// interaction middleware, or the HTTP/Kafka ingestion surfaces.

type StreamCreationEvent struct {
	Employer        string `json:"employer"`
	Worker          string `json:"worker"`
	Token           string `json:"token"`
	Amount          string `json:"amount"`
	ScheduleID      string `json:"schedule_id,omitempty"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	BlockNumber     int64  `json:"block_number,omitempty"`
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
}

type ContractInteractionEvent struct {
	Employer        string `json:"employer"`
	ContractAddress string `json:"contract_address"`
	Method          string `json:"method"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	BlockNumber     int64  `json:"block_number,omitempty"`
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
}

// Scheduler task lifecycle actions.
const (
	SchedulerTaskStarted   = "task_started"
	SchedulerTaskCompleted = "task_completed"
	SchedulerTaskFailed    = "task_failed"
)

type SchedulerEvent struct {
	Action     string `json:"action"`
	ScheduleID string `json:"schedule_id"`
	Employer   string `json:"employer,omitempty"`
	Details    string `json:"details,omitempty"`
	Error      string `json:"error,omitempty"`
}

type MonitorEvent struct {
	Employer   string `json:"employer"`
	Token      string `json:"token"`
	Balance    string `json:"balance"`
	Threshold  string `json:"threshold,omitempty"`
	AlertFired bool   `json:"alert_fired"`
	Message    string `json:"message,omitempty"`
}
