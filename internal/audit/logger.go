package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/dto"
	"streampay-audit-backend/internal/metrics"
	"streampay-audit-backend/internal/model"
	"streampay-audit-backend/internal/redact"
	"streampay-audit-backend/internal/util"
)

const fallbackMessage = "(no message)"

// Logger builds audit entries and feeds them into the write queue. Its
// own failures never reach the instrumented business code: ingestion
// calls always return, and all failure information goes to the side
// channel (zerolog + Prometheus).
//
// The entry returned to the caller is the pre-redaction value; only the
// copy placed in the queue is scrubbed.
type Logger struct {
	cfg       *config.AuditConfig
	minLevel  model.Level
	redactor  *redact.Redactor
	queue     *Queue
	persister *Persister
	metrics   *metrics.PipelineMetrics
}

func NewLogger(cfg *config.Config, redactor *redact.Redactor, queue *Queue, persister *Persister, m *metrics.PipelineMetrics) *Logger {
	return &Logger{
		cfg:       &cfg.Audit,
		minLevel:  model.ParseLevel(cfg.Audit.MinLevel),
		redactor:  redactor,
		queue:     queue,
		persister: persister,
		metrics:   m,
	}
}

// Log normalizes a raw (level, message, context) triple into a canonical
// entry, applies level filtering, and queues the entry for persistence.
// The returned entry is always non-nil so call sites can inspect what was
// (or would have been) recorded.
func (l *Logger) Log(level model.Level, message string, ctx model.Context) *model.AuditEntry {
	entry := l.build(level, message, ctx)
	l.submit(entry)
	return entry
}

func (l *Logger) Info(message string, ctx model.Context) *model.AuditEntry {
	return l.Log(model.LevelInfo, message, ctx)
}

func (l *Logger) Warn(message string, ctx model.Context) *model.AuditEntry {
	return l.Log(model.LevelWarn, message, ctx)
}

// Error records an error-carrying entry, folding the error's message,
// code, and rendered detail into both the context and the dedicated
// entry fields.
func (l *Logger) Error(message string, err error, ctx model.Context) *model.AuditEntry {
	var errCode, errStack string
	if err != nil {
		if coder, ok := err.(interface{ Code() string }); ok {
			errCode = coder.Code()
		}
		if detail := fmt.Sprintf("%+v", err); detail != err.Error() {
			errStack = detail
		}

		copied := make(model.Context, len(ctx)+3)
		for k, v := range ctx {
			copied[k] = v
		}
		copied["error_message"] = err.Error()
		if errCode != "" {
			copied["error_code"] = errCode
		}
		if errStack != "" {
			copied["error_stack"] = errStack
		}
		ctx = copied
	}

	entry := l.build(model.LevelError, message, ctx)
	if err != nil {
		entry.ErrorMessage = err.Error()
		entry.ErrorCode = errCode
		entry.ErrorStack = errStack
	}
	l.submit(entry)
	return entry
}

// LogStreamCreation records a payroll stream creation attempt. ERROR when
// the event records failure, INFO otherwise.
func (l *Logger) LogStreamCreation(ev dto.StreamCreationEvent) {
	level := model.LevelInfo
	message := fmt.Sprintf("Payroll stream created for worker %s", ev.Worker)
	if !ev.Success {
		level = model.LevelError
		message = fmt.Sprintf("Payroll stream creation failed for worker %s", ev.Worker)
	}

	ctx := model.Context{
		"worker": ev.Worker,
		"token":  ev.Token,
		"amount": ev.Amount,
	}
	if ev.ScheduleID != "" {
		ctx["schedule_id"] = ev.ScheduleID
	}

	entry := l.build(level, message, ctx)
	entry.ActionType = model.ActionStreamCreation
	entry.Employer = ev.Employer
	entry.TransactionHash = ev.TransactionHash
	entry.BlockNumber = ev.BlockNumber
	if !ev.Success {
		entry.ErrorMessage = ev.Error
	}
	l.submit(entry)
}

// LogContractInteraction records a contract call. ERROR when the event
// records failure, INFO otherwise.
func (l *Logger) LogContractInteraction(ev dto.ContractInteractionEvent) {
	level := model.LevelInfo
	message := fmt.Sprintf("Contract call %s succeeded", ev.Method)
	if !ev.Success {
		level = model.LevelError
		message = fmt.Sprintf("Contract call %s failed", ev.Method)
	}

	entry := l.build(level, message, model.Context{
		"contract_address": ev.ContractAddress,
		"method":           ev.Method,
	})
	entry.ActionType = model.ActionContractInteraction
	entry.Employer = ev.Employer
	entry.TransactionHash = ev.TransactionHash
	entry.BlockNumber = ev.BlockNumber
	if !ev.Success {
		entry.ErrorMessage = ev.Error
	}
	l.submit(entry)
}

// LogSchedulerEvent records a scheduled task lifecycle event. Only
// task_failed maps to ERROR; task_started and task_completed are INFO.
func (l *Logger) LogSchedulerEvent(ev dto.SchedulerEvent) {
	level := model.LevelInfo
	if ev.Action == dto.SchedulerTaskFailed {
		level = model.LevelError
	}

	ctx := model.Context{
		"action":      ev.Action,
		"schedule_id": ev.ScheduleID,
	}
	if ev.Details != "" {
		ctx["details"] = ev.Details
	}

	entry := l.build(level, fmt.Sprintf("Scheduler %s for schedule %s", ev.Action, ev.ScheduleID), ctx)
	entry.ActionType = model.ActionScheduling
	entry.Employer = ev.Employer
	if level == model.LevelError {
		entry.ErrorMessage = ev.Error
	}
	l.submit(entry)
}

// LogMonitorEvent records a treasury runway check. WARN when an alert
// fired, INFO otherwise.
func (l *Logger) LogMonitorEvent(ev dto.MonitorEvent) {
	level := model.LevelInfo
	message := ev.Message
	if message == "" {
		message = fmt.Sprintf("Treasury balance check for token %s", ev.Token)
	}
	if ev.AlertFired {
		level = model.LevelWarn
		if ev.Message == "" {
			message = fmt.Sprintf("Treasury balance alert for token %s", ev.Token)
		}
	}

	ctx := model.Context{
		"token":   ev.Token,
		"balance": ev.Balance,
	}
	if ev.Threshold != "" {
		ctx["threshold"] = ev.Threshold
	}
	ctx["alert_fired"] = ev.AlertFired

	entry := l.build(level, message, ctx)
	entry.ActionType = model.ActionMonitoring
	entry.Employer = ev.Employer
	l.submit(entry)
}

// build normalizes raw parameters into a canonical entry. Correlation
// fields present in the context under their well-known keys are promoted
// to the dedicated columns; an unusable caller timestamp is corrected to
// build time rather than rejected.
func (l *Logger) build(level model.Level, message string, ctx model.Context) *model.AuditEntry {
	if !level.Valid() {
		level = model.LevelInfo
	}
	if message == "" {
		message = fallbackMessage
	}

	entry := &model.AuditEntry{
		Timestamp:  time.Now().UTC(),
		Level:      level,
		Message:    message,
		ActionType: model.ActionSystem,
		Context:    ctx,
	}

	if ctx == nil {
		return entry
	}

	if raw, ok := ctx["timestamp"].(string); ok {
		if t, err := util.ParseTimeFlexible(raw); err == nil {
			entry.Timestamp = t
		}
	}
	if at, ok := ctx["action_type"].(string); ok && model.ActionType(at).Valid() {
		entry.ActionType = model.ActionType(at)
	}
	if employer, ok := ctx["employer"].(string); ok {
		entry.Employer = employer
	}
	if hash, ok := ctx["transaction_hash"].(string); ok {
		entry.TransactionHash = hash
	}
	switch bn := ctx["block_number"].(type) {
	case int64:
		entry.BlockNumber = bn
	case int:
		entry.BlockNumber = int64(bn)
	case float64:
		entry.BlockNumber = int64(bn)
	}

	return entry
}

// submit validates the entry, applies level filtering, and enqueues a
// redacted clone. A failed structural round-trip is a programmer bug and
// panics; everything past that point is fire-and-forget.
func (l *Logger) submit(entry *model.AuditEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		panic(fmt.Sprintf("audit: entry failed structural validation: %v", err))
	}
	var clone model.AuditEntry
	if err := json.Unmarshal(data, &clone); err != nil {
		panic(fmt.Sprintf("audit: entry failed structural round-trip: %v", err))
	}

	if !entry.Level.AtLeast(l.minLevel) {
		l.metrics.EntryFiltered()
		return
	}

	queued := l.redactor.Entry(clone)
	l.queue.Enqueue(queued)

	if !l.cfg.AsyncWrites && l.persister != nil {
		l.persister.Kick()
	}
}
