package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/metrics"
	"streampay-audit-backend/internal/model"
	"streampay-audit-backend/internal/repository"
	"streampay-audit-backend/internal/spill"
)

const flushTimeout = 30 * time.Second

// Mirror publishes durably written batches for downstream compliance
// consumers. Best-effort: a mirror failure never affects durability.
type Mirror interface {
	Publish(ctx context.Context, entries []model.AuditEntry) error
}

// Persister drains the write queue on a timer and commits each batch in
// a single transaction. One dedicated worker goroutine owns all flush
// activity, so two flush cycles can never overlap.
type Persister struct {
	queue    *Queue
	store    repository.AuditStore
	mirror   Mirror
	spill    spill.Manager
	interval time.Duration
	metrics  *metrics.PipelineMetrics

	kick  chan struct{}
	stopc chan struct{}
	done  chan struct{}
}

func NewPersister(cfg *config.Config, queue *Queue, store repository.AuditStore, mirror Mirror, spillMgr spill.Manager, m *metrics.PipelineMetrics) *Persister {
	return &Persister{
		queue:    queue,
		store:    store,
		mirror:   mirror,
		spill:    spillMgr,
		interval: time.Duration(cfg.Audit.FlushIntervalMs) * time.Millisecond,
		metrics:  m,
		kick:     make(chan struct{}, 1),
		stopc:    make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start recovers any spilled entries from a previous run and launches
// the flush worker.
func (p *Persister) Start() {
	p.recoverSpill()
	go p.run()
	log.Info().Dur("interval", p.interval).Msg("Audit persister started")
}

func (p *Persister) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopc:
			// One final synchronous flush before handing control back.
			p.flush()
			return
		case <-ticker.C:
			p.flush()
		case <-p.kick:
			p.flush()
		}
	}
}

// Kick requests an immediate flush cycle without waiting for the timer.
// Used by synchronous-write mode. Non-blocking: if a request is already
// pending the worker will pick up this entry in the same cycle.
func (p *Persister) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Stop terminates the worker, waits for its final flush, and spills any
// entries the store refused so a later run can retry them.
func (p *Persister) Stop(ctx context.Context) error {
	close(p.stopc)
	select {
	case <-p.done:
	case <-ctx.Done():
		log.Error().Msg("Context cancelled while waiting for audit persister to stop")
		return ctx.Err()
	}

	if remaining := p.queue.DrainAll(); len(remaining) > 0 {
		if p.spill == nil {
			log.Warn().Int("entries", len(remaining)).Msg("Unflushed audit entries lost at shutdown (no spill file configured)")
			return nil
		}
		if err := p.spill.Save(remaining); err != nil {
			log.Error().Err(err).Int("entries", len(remaining)).Msg("Failed to spill unflushed audit entries")
		}
	}
	log.Info().Msg("Audit persister stopped")
	return nil
}

// flush executes one drain-and-write cycle. A store failure rolls the
// whole batch back and restores it to the front of the queue; an absent
// store leaves the queue untouched.
func (p *Persister) flush() {
	p.metrics.FlushCycle()

	if p.queue.Len() == 0 {
		return
	}

	if !p.store.Available() {
		log.Warn().Int("queued", p.queue.Len()).Msg("Audit store unavailable, skipping flush cycle")
		return
	}

	batch := p.queue.DrainAll()
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := p.store.InsertBatch(ctx, batch); err != nil {
		log.Error().Err(err).Int("batch_size", len(batch)).Msg("Audit batch write failed, requeueing batch")
		p.metrics.FlushFailed()
		p.queue.RequeueFront(batch)
		return
	}

	p.metrics.EntriesPersisted(len(batch))
	log.Debug().Int("batch_size", len(batch)).Msg("Audit batch persisted")

	if p.mirror != nil {
		if err := p.mirror.Publish(ctx, batch); err != nil {
			log.Warn().Err(err).Int("batch_size", len(batch)).Msg("Failed to mirror audit batch")
		}
	}
}

func (p *Persister) recoverSpill() {
	if p.spill == nil {
		return
	}
	entries, err := p.spill.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load spilled audit entries, continuing without them")
		return
	}
	if len(entries) == 0 {
		return
	}
	for _, entry := range entries {
		p.queue.Enqueue(entry)
	}
	if err := p.spill.Discard(); err != nil {
		log.Warn().Err(err).Str("file", p.spill.Path()).Msg("Failed to remove spill file after recovery")
	}
}
