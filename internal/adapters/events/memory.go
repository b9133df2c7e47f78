package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/fairwork/escrow-settlement-service/internal/contracts"
)

// MemoryDomainPublisher records domain events in process memory. Used by
// local runtimes without kafka and by tests that assert on emitted events.
type MemoryDomainPublisher struct {
	mu       sync.Mutex
	events   []contracts.EventEnvelope
	failNext bool
}

func NewMemoryDomainPublisher() *MemoryDomainPublisher {
	return &MemoryDomainPublisher{}
}

func (p *MemoryDomainPublisher) PublishDomain(_ context.Context, event contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext {
		p.failNext = false
		return errors.New("publish failed")
	}
	p.events = append(p.events, event)
	return nil
}

// FailNext makes the next publish attempt fail once.
func (p *MemoryDomainPublisher) FailNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = true
}

func (p *MemoryDomainPublisher) Events() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(p.events))
	copy(out, p.events)
	return out
}

type MemoryAnalyticsPublisher struct {
	mu     sync.Mutex
	events []contracts.EventEnvelope
}

func NewMemoryAnalyticsPublisher() *MemoryAnalyticsPublisher {
	return &MemoryAnalyticsPublisher{}
}

func (p *MemoryAnalyticsPublisher) PublishAnalytics(_ context.Context, event contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *MemoryAnalyticsPublisher) Events() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(p.events))
	copy(out, p.events)
	return out
}

// MemoryDLQPublisher captures dead-lettered events for inspection.
type MemoryDLQPublisher struct {
	mu      sync.Mutex
	records []contracts.DLQRecord
}

func NewMemoryDLQPublisher() *MemoryDLQPublisher {
	return &MemoryDLQPublisher{}
}

func (p *MemoryDLQPublisher) PublishDLQ(_ context.Context, record contracts.DLQRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, record)
	return nil
}

func (p *MemoryDLQPublisher) Records() []contracts.DLQRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.DLQRecord, len(p.records))
	copy(out, p.records)
	return out
}

// LoggingDLQPublisher logs dead-lettered events instead of shipping them.
type LoggingDLQPublisher struct {
	logger *slog.Logger
}

func NewLoggingDLQPublisher(logger *slog.Logger) *LoggingDLQPublisher {
	return &LoggingDLQPublisher{logger: logger}
}

func (p *LoggingDLQPublisher) PublishDLQ(_ context.Context, record contracts.DLQRecord) error {
	p.logger.Error("event dead-lettered",
		slog.String("event_id", record.OriginalEvent.EventID),
		slog.String("event_type", record.OriginalEvent.EventType),
		slog.String("error_summary", record.ErrorSummary),
	)
	return nil
}
