package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fairwork/escrow-settlement-service/internal/domain"
	"github.com/fairwork/escrow-settlement-service/internal/ports"
)

// Repositories bundles the in-memory stores used by unit tests and by dev
// runtimes without a configured database.
type Repositories struct {
	Escrows     *EscrowRepository
	Milestones  *MilestoneRepository
	Fees        *FeeRepository
	Idempotency *IdempotencyRepository
	Outbox      *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Escrows:     &EscrowRepository{rows: map[int64]domain.Escrow{}, byParty: map[string][]int64{}},
		Milestones:  &MilestoneRepository{rows: map[int64][]domain.Milestone{}},
		Fees:        &FeeRepository{balances: map[string]int64{}},
		Idempotency: &IdempotencyRepository{rows: map[string]ports.IdempotencyRecord{}},
		Outbox:      &OutboxRepository{rows: map[string]ports.OutboxRecord{}, order: []string{}},
	}
}

type EscrowRepository struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]domain.Escrow
	byParty map[string][]int64
}

func (r *EscrowRepository) Create(_ context.Context, row domain.Escrow) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	row.EscrowID = r.nextID
	r.rows[row.EscrowID] = row
	r.byParty[row.Depositor] = append(r.byParty[row.Depositor], row.EscrowID)
	r.byParty[row.Beneficiary] = append(r.byParty[row.Beneficiary], row.EscrowID)
	return row.EscrowID, nil
}

func (r *EscrowRepository) GetByID(_ context.Context, escrowID int64) (domain.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[escrowID]
	if !ok {
		return domain.Escrow{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *EscrowRepository) Update(_ context.Context, row domain.Escrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.EscrowID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[row.EscrowID] = row
	return nil
}

func (r *EscrowRepository) ListIDsByParty(_ context.Context, party string, offset, limit int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.byParty[party]
	if offset >= len(ids) {
		return []int64{}, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]int64, end-offset)
	copy(out, ids[offset:end])
	return out, nil
}

type MilestoneRepository struct {
	mu   sync.Mutex
	rows map[int64][]domain.Milestone
}

func (r *MilestoneRepository) Append(_ context.Context, row domain.Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.EscrowID] = append(r.rows[row.EscrowID], row)
	return nil
}

func (r *MilestoneRepository) GetByIndex(_ context.Context, escrowID, index int64) (domain.Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ms := range r.rows[escrowID] {
		if ms.Index == index {
			return ms, nil
		}
	}
	return domain.Milestone{}, domain.ErrNotFound
}

func (r *MilestoneRepository) Update(_ context.Context, row domain.Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.rows[row.EscrowID]
	for i, ms := range list {
		if ms.Index == row.Index {
			list[i] = row
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MilestoneRepository) ListByEscrowID(_ context.Context, escrowID int64) ([]domain.Milestone, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.rows[escrowID]
	out := make([]domain.Milestone, len(list))
	copy(out, list)
	return out, nil
}

func (r *MilestoneRepository) SumAmounts(_ context.Context, escrowID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, ms := range r.rows[escrowID] {
		sum += ms.Amount
	}
	return sum, nil
}

type FeeRepository struct {
	mu       sync.Mutex
	balances map[string]int64
}

func (r *FeeRepository) Accrue(_ context.Context, asset string, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[asset] += delta
	return nil
}

func (r *FeeRepository) Balance(_ context.Context, asset string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[asset], nil
}

func (r *FeeRepository) Withdraw(_ context.Context, asset string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	amount := r.balances[asset]
	r.balances[asset] = 0
	return amount, nil
}

type IdempotencyRepository struct {
	mu   sync.Mutex
	rows map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return nil, nil
	}
	if now.After(row.ExpiresAt) {
		delete(r.rows, key)
		return nil, nil
	}
	c := row
	c.ResponseBody = append([]byte(nil), row.ResponseBody...)
	return &c, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[key]; ok && time.Now().UTC().Before(row.ExpiresAt) {
		return domain.ErrConflict
	}
	r.rows[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.ResponseCode = responseCode
	row.ResponseBody = append([]byte(nil), responseBody...)
	r.rows[key] = row
	return nil
}

type OutboxRepository struct {
	mu    sync.Mutex
	rows  map[string]ports.OutboxRecord
	order []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, row ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.RecordID]; ok {
		return domain.ErrConflict
	}
	r.rows[row.RecordID] = row
	r.order = append(r.order, row.RecordID)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		row, ok := r.rows[id]
		if !ok || row.SentAt != nil {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	row.SentAt = &at
	r.rows[recordID] = row
	return nil
}
