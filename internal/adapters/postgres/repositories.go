package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fairwork/escrow-settlement-service/internal/contracts"
	"github.com/fairwork/escrow-settlement-service/internal/domain"
	"github.com/fairwork/escrow-settlement-service/internal/ports"
)

type Repositories struct {
	Escrows     ports.EscrowRepository
	Milestones  ports.MilestoneRepository
	Fees        ports.FeeRepository
	Idempotency ports.IdempotencyRepository
	Outbox      ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Escrows:     &escrowRepository{db: db},
		Milestones:  &milestoneRepository{db: db},
		Fees:        &feeRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
		Outbox:      &outboxRepository{db: db},
	}
}

type escrowModel struct {
	EscrowID       int64      `gorm:"column:escrow_id;primaryKey;autoIncrement"`
	ContractRef    string     `gorm:"column:contract_ref"`
	Depositor      string     `gorm:"column:depositor"`
	Beneficiary    string     `gorm:"column:beneficiary"`
	Asset          string     `gorm:"column:asset"`
	TotalAmount    int64      `gorm:"column:total_amount"`
	ReleasedAmount int64      `gorm:"column:released_amount"`
	RefundedAmount int64      `gorm:"column:refunded_amount"`
	Status         string     `gorm:"column:status"`
	Disputed       bool       `gorm:"column:disputed"`
	DisputeReason  string     `gorm:"column:dispute_reason"`
	DeadlineHeight int64      `gorm:"column:deadline_height"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FundedAt       *time.Time `gorm:"column:funded_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (escrowModel) TableName() string { return "escrows" }

type milestoneModel struct {
	EscrowID    int64      `gorm:"column:escrow_id;primaryKey"`
	Idx         int64      `gorm:"column:idx;primaryKey"`
	Description string     `gorm:"column:description"`
	Amount      int64      `gorm:"column:amount"`
	Completed   bool       `gorm:"column:completed"`
	Paid        bool       `gorm:"column:paid"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	PaidAt      *time.Time `gorm:"column:paid_at"`
}

func (milestoneModel) TableName() string { return "escrow_milestones" }

type feeBalanceModel struct {
	Asset     string    `gorm:"column:asset;primaryKey"`
	Balance   int64     `gorm:"column:balance"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (feeBalanceModel) TableName() string { return "fee_balances" }

type idempotencyModel struct {
	Key          string    `gorm:"column:key;primaryKey"`
	RequestHash  string    `gorm:"column:request_hash"`
	ResponseCode int       `gorm:"column:response_code"`
	ResponseBody []byte    `gorm:"column:response_body"`
	ExpiresAt    time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string { return "idempotency_records" }

type outboxModel struct {
	RecordID   string     `gorm:"column:record_id;primaryKey"`
	EventClass string     `gorm:"column:event_class"`
	Envelope   []byte     `gorm:"column:envelope"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	SentAt     *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "outbox_records" }

type escrowRepository struct {
	db *gorm.DB
}

func (r *escrowRepository) Create(ctx context.Context, row domain.Escrow) (int64, error) {
	model := toEscrowModel(row)
	model.EscrowID = 0
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return 0, err
	}
	return model.EscrowID, nil
}

func (r *escrowRepository) GetByID(ctx context.Context, escrowID int64) (domain.Escrow, error) {
	var model escrowModel
	err := r.db.WithContext(ctx).First(&model, "escrow_id = ?", escrowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Escrow{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Escrow{}, err
	}
	return toDomainEscrow(model), nil
}

func (r *escrowRepository) Update(ctx context.Context, row domain.Escrow) error {
	model := toEscrowModel(row)
	res := r.db.WithContext(ctx).Model(&escrowModel{}).
		Where("escrow_id = ?", row.EscrowID).
		Select("*").Omit("escrow_id", "created_at").
		Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *escrowRepository) ListIDsByParty(ctx context.Context, party string, offset, limit int) ([]int64, error) {
	ids := []int64{}
	err := r.db.WithContext(ctx).Model(&escrowModel{}).
		Where("depositor = ? OR beneficiary = ?", party, party).
		Order("escrow_id ASC").
		Offset(offset).Limit(limit).
		Pluck("escrow_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type milestoneRepository struct {
	db *gorm.DB
}

func (r *milestoneRepository) Append(ctx context.Context, row domain.Milestone) error {
	model := toMilestoneModel(row)
	err := r.db.WithContext(ctx).Create(&model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

func (r *milestoneRepository) GetByIndex(ctx context.Context, escrowID, index int64) (domain.Milestone, error) {
	var model milestoneModel
	err := r.db.WithContext(ctx).First(&model, "escrow_id = ? AND idx = ?", escrowID, index).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Milestone{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Milestone{}, err
	}
	return toDomainMilestone(model), nil
}

func (r *milestoneRepository) Update(ctx context.Context, row domain.Milestone) error {
	model := toMilestoneModel(row)
	res := r.db.WithContext(ctx).Model(&milestoneModel{}).
		Where("escrow_id = ? AND idx = ?", row.EscrowID, row.Index).
		Select("*").Omit("escrow_id", "idx", "created_at").
		Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *milestoneRepository) ListByEscrowID(ctx context.Context, escrowID int64) ([]domain.Milestone, error) {
	var models []milestoneModel
	err := r.db.WithContext(ctx).
		Where("escrow_id = ?", escrowID).
		Order("idx ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Milestone, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainMilestone(m))
	}
	return out, nil
}

func (r *milestoneRepository) SumAmounts(ctx context.Context, escrowID int64) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&milestoneModel{}).
		Where("escrow_id = ?", escrowID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

type feeRepository struct {
	db *gorm.DB
}

func (r *feeRepository) Accrue(ctx context.Context, asset string, delta int64) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "asset"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance":    gorm.Expr("fee_balances.balance + ?", delta),
			"updated_at": now,
		}),
	}).Create(&feeBalanceModel{Asset: asset, Balance: delta, UpdatedAt: now}).Error
}

func (r *feeRepository) Balance(ctx context.Context, asset string) (int64, error) {
	var model feeBalanceModel
	err := r.db.WithContext(ctx).First(&model, "asset = ?", asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return model.Balance, nil
}

func (r *feeRepository) Withdraw(ctx context.Context, asset string) (int64, error) {
	var amount int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model feeBalanceModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "asset = ?", asset).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			amount = 0
			return nil
		}
		if err != nil {
			return err
		}
		amount = model.Balance
		return tx.Model(&feeBalanceModel{}).Where("asset = ?", asset).
			Updates(map[string]any{"balance": 0, "updated_at": time.Now().UTC()}).Error
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var model idempotencyModel
	err := r.db.WithContext(ctx).First(&model, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if now.After(model.ExpiresAt) {
		_ = r.db.WithContext(ctx).Delete(&idempotencyModel{}, "key = ?", key).Error
		return nil, nil
	}
	return &ports.IdempotencyRecord{
		Key:          model.Key,
		RequestHash:  model.RequestHash,
		ResponseCode: model.ResponseCode,
		ResponseBody: model.ResponseBody,
		ExpiresAt:    model.ExpiresAt,
	}, nil
}

func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	err := r.db.WithContext(ctx).Create(&idempotencyModel{
		Key:         key,
		RequestHash: requestHash,
		ExpiresAt:   expiresAt,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	res := r.db.WithContext(ctx).Model(&idempotencyModel{}).
		Where("key = ?", key).
		Updates(map[string]any{
			"response_code": responseCode,
			"response_body": responseBody,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	payload, err := json.Marshal(record.Envelope)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Create(&outboxModel{
		RecordID:   record.RecordID,
		EventClass: record.EventClass,
		Envelope:   payload,
		CreatedAt:  record.CreatedAt,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []outboxModel
	err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(models))
	for _, m := range models {
		var env contracts.EventEnvelope
		if err := json.Unmarshal(m.Envelope, &env); err != nil {
			return nil, err
		}
		out = append(out, ports.OutboxRecord{
			RecordID:   m.RecordID,
			EventClass: m.EventClass,
			Envelope:   env,
			CreatedAt:  m.CreatedAt,
			SentAt:     m.SentAt,
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("record_id = ?", recordID).
		Update("sent_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toEscrowModel(row domain.Escrow) escrowModel {
	return escrowModel{
		EscrowID:       row.EscrowID,
		ContractRef:    row.ContractRef,
		Depositor:      row.Depositor,
		Beneficiary:    row.Beneficiary,
		Asset:          row.Asset,
		TotalAmount:    row.TotalAmount,
		ReleasedAmount: row.ReleasedAmount,
		RefundedAmount: row.RefundedAmount,
		Status:         row.Status,
		Disputed:       row.Disputed,
		DisputeReason:  row.DisputeReason,
		DeadlineHeight: row.DeadlineHeight,
		CreatedAt:      row.CreatedAt,
		FundedAt:       row.FundedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func toDomainEscrow(model escrowModel) domain.Escrow {
	return domain.Escrow{
		EscrowID:       model.EscrowID,
		ContractRef:    model.ContractRef,
		Depositor:      model.Depositor,
		Beneficiary:    model.Beneficiary,
		Asset:          model.Asset,
		TotalAmount:    model.TotalAmount,
		ReleasedAmount: model.ReleasedAmount,
		RefundedAmount: model.RefundedAmount,
		Status:         model.Status,
		Disputed:       model.Disputed,
		DisputeReason:  model.DisputeReason,
		DeadlineHeight: model.DeadlineHeight,
		CreatedAt:      model.CreatedAt,
		FundedAt:       model.FundedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func toMilestoneModel(row domain.Milestone) milestoneModel {
	return milestoneModel{
		EscrowID:    row.EscrowID,
		Idx:         row.Index,
		Description: row.Description,
		Amount:      row.Amount,
		Completed:   row.Completed,
		Paid:        row.Paid,
		CreatedAt:   row.CreatedAt,
		CompletedAt: row.CompletedAt,
		PaidAt:      row.PaidAt,
	}
}

func toDomainMilestone(model milestoneModel) domain.Milestone {
	return domain.Milestone{
		EscrowID:    model.EscrowID,
		Index:       model.Idx,
		Description: model.Description,
		Amount:      model.Amount,
		Completed:   model.Completed,
		Paid:        model.Paid,
		CreatedAt:   model.CreatedAt,
		CompletedAt: model.CompletedAt,
		PaidAt:      model.PaidAt,
	}
}
