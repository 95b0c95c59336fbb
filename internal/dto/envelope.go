package dto

import "encoding/json"

// Audit event kinds accepted over the Kafka ingestion topic.
const (
	EventKindStreamCreation      = "stream_creation"
	EventKindContractInteraction = "contract_interaction"
	EventKindScheduler           = "scheduler"
	EventKindMonitor             = "monitor"
	EventKindGeneric             = "generic"
)

// AuditEventEnvelope wraps a domain event published by the automation
// services (stream creation cron, treasury monitor, contract
// middleware). Payload decodes to the shape matching Kind.
type AuditEventEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}
