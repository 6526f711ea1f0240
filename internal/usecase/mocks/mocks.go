// Package mocks holds hand-written in-memory fakes for the usecase
// interfaces. Every method can be overridden per test through its Func
// field; unset methods fall back to map-backed behavior.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fluxpay/pspcore/internal/domain"
	"github.com/fluxpay/pspcore/internal/usecase"
)

// MockTransaction is a no-op transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	t.Committed = true
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// MockTransactionManager hands out no-op transactions.
type MockTransactionManager struct {
	mu        sync.Mutex
	Began     []*MockTransaction
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.Began = append(m.Began, tx)
	return tx, nil
}

// MockIDGenerator returns sequential IDs.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int
	Prefix  string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{Prefix: "id"}
}

func (m *MockIDGenerator) Generate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("%s-%d", m.Prefix, m.counter)
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc           func(ctx context.Context, account *domain.Account) error
	CreateTxFunc         func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDFunc          func(ctx context.Context, tenantID, id string) (*domain.Account, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.Account, error)
	ListFunc             func(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]*domain.Account)}
}

// Add seeds an account directly.
func (m *MockAccountRepository) Add(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.Add(account)
	return nil
}

func (m *MockAccountRepository) CreateTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, account)
	}
	m.Add(account)
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, tenantID, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok && acc.TenantID == tenantID {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.Account, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, tenantID, id)
	}
	return m.GetByID(ctx, tenantID, id)
}

func (m *MockAccountRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, tenantID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		if acc.TenantID == tenantID {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.LedgerEntry

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error
	GetByIDFunc         func(ctx context.Context, tenantID, id string) (*domain.LedgerEntry, error)
	SumForAccountFunc   func(ctx context.Context, tenantID, accountID string, asOf time.Time) (decimal.Decimal, error)
	SumForAccountTxFunc func(ctx context.Context, tx usecase.Transaction, tenantID, accountID string, asOf time.Time) (decimal.Decimal, error)
	ReversalOfTxFunc    func(ctx context.Context, tx usecase.Transaction, tenantID, entryID string) (bool, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{entries: make(map[string]*domain.LedgerEntry)}
}

func (m *MockEntryRepository) Add(entry *domain.LedgerEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
}

// Entries returns all stored entries.
func (m *MockEntryRepository) Entries() []*domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.Add(entry)
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.LedgerEntry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, tenantID, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok && e.TenantID == tenantID {
		return e, nil
	}
	return nil, domain.ErrUnknownEntry
}

func (m *MockEntryRepository) GetByIDTx(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.LedgerEntry, error) {
	return m.GetByID(ctx, tenantID, id)
}

func (m *MockEntryRepository) ListByAccount(ctx context.Context, tenantID, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, e := range m.entries {
		if e.TenantID == tenantID && (e.DebitAccountID == accountID || e.CreditAccountID == accountID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockEntryRepository) sum(tenantID, accountID string, asOf time.Time) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, e := range m.entries {
		if e.TenantID != tenantID || e.CreatedAt.After(asOf) {
			continue
		}
		total = total.Add(e.Contribution(accountID))
	}
	return total
}

func (m *MockEntryRepository) SumForAccount(ctx context.Context, tenantID, accountID string, asOf time.Time) (decimal.Decimal, error) {
	if m.SumForAccountFunc != nil {
		return m.SumForAccountFunc(ctx, tenantID, accountID, asOf)
	}
	return m.sum(tenantID, accountID, asOf), nil
}

func (m *MockEntryRepository) SumForAccountTx(ctx context.Context, tx usecase.Transaction, tenantID, accountID string, asOf time.Time) (decimal.Decimal, error) {
	if m.SumForAccountTxFunc != nil {
		return m.SumForAccountTxFunc(ctx, tx, tenantID, accountID, asOf)
	}
	return m.sum(tenantID, accountID, asOf), nil
}

func (m *MockEntryRepository) ReversalOfTx(ctx context.Context, tx usecase.Transaction, tenantID, entryID string) (bool, error) {
	if m.ReversalOfTxFunc != nil {
		return m.ReversalOfTxFunc(ctx, tx, tenantID, entryID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.TenantID == tenantID && e.ReversedEntryID != nil && *e.ReversedEntryID == entryID {
			return true, nil
		}
	}
	return false, nil
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	CheckConsistencyFunc func(ctx context.Context, tenantID string) (decimal.Decimal, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) CheckConsistency(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	if m.CheckConsistencyFunc != nil {
		return m.CheckConsistencyFunc(ctx, tenantID)
	}
	return decimal.Zero, nil
}

// MockReservationRepository is a mock implementation of ReservationRepository.
type MockReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*domain.Reservation

	CreateFunc               func(ctx context.Context, tx usecase.Transaction, res *domain.Reservation) error
	SumActiveExcludingTxFunc func(ctx context.Context, tx usecase.Transaction, tenantID, accountID, excludeID string) (decimal.Decimal, error)
}

func NewMockReservationRepository() *MockReservationRepository {
	return &MockReservationRepository{reservations: make(map[string]*domain.Reservation)}
}

func (m *MockReservationRepository) Add(res *domain.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[res.ID] = res
}

func (m *MockReservationRepository) Create(ctx context.Context, tx usecase.Transaction, res *domain.Reservation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, res)
	}
	m.Add(res)
	return nil
}

func (m *MockReservationRepository) getByBatchRef(tenantID, batchRef string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, res := range m.reservations {
		if res.TenantID == tenantID && res.BatchReference == batchRef {
			return res, nil
		}
	}
	return nil, domain.ErrReservationNotFound
}

func (m *MockReservationRepository) GetByBatchReference(ctx context.Context, tenantID, batchRef string) (*domain.Reservation, error) {
	return m.getByBatchRef(tenantID, batchRef)
}

func (m *MockReservationRepository) GetByBatchReferenceForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, batchRef string) (*domain.Reservation, error) {
	return m.getByBatchRef(tenantID, batchRef)
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, tenantID, id string, status domain.ReservationStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok || res.TenantID != tenantID {
		return domain.ErrReservationNotFound
	}
	res.Status = status
	res.UpdatedAt = updatedAt
	return nil
}

func (m *MockReservationRepository) SumActiveExcludingTx(ctx context.Context, tx usecase.Transaction, tenantID, accountID, excludeID string) (decimal.Decimal, error) {
	if m.SumActiveExcludingTxFunc != nil {
		return m.SumActiveExcludingTxFunc(ctx, tx, tenantID, accountID, excludeID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, res := range m.reservations {
		if res.TenantID == tenantID && res.FundingAccountID == accountID &&
			res.Status == domain.ReservationStatusActive && res.ID != excludeID {
			total = total.Add(res.ReservedAmount)
		}
	}
	return total, nil
}

// MockInstructionRepository is a mock implementation of InstructionRepository.
type MockInstructionRepository struct {
	mu           sync.RWMutex
	instructions map[string]*domain.PaymentInstruction

	CreateFunc func(ctx context.Context, tx usecase.Transaction, instr *domain.PaymentInstruction) error
	UpdateFunc func(ctx context.Context, tx usecase.Transaction, instr *domain.PaymentInstruction) error
}

func NewMockInstructionRepository() *MockInstructionRepository {
	return &MockInstructionRepository{instructions: make(map[string]*domain.PaymentInstruction)}
}

func (m *MockInstructionRepository) Add(instr *domain.PaymentInstruction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instructions[instr.ID] = instr
}

func (m *MockInstructionRepository) Create(ctx context.Context, tx usecase.Transaction, instr *domain.PaymentInstruction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, instr)
	}
	m.Add(instr)
	return nil
}

func (m *MockInstructionRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.PaymentInstruction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if instr, ok := m.instructions[id]; ok && instr.TenantID == tenantID {
		return instr, nil
	}
	return nil, domain.ErrInstructionNotFound
}

func (m *MockInstructionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.PaymentInstruction, error) {
	return m.GetByID(ctx, tenantID, id)
}

func (m *MockInstructionRepository) GetByProviderReferenceForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, providerRef string) (*domain.PaymentInstruction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, instr := range m.instructions {
		if instr.TenantID == tenantID && instr.ProviderReference == providerRef {
			return instr, nil
		}
	}
	return nil, domain.ErrUnknownProviderRef
}

func (m *MockInstructionRepository) ListByBatch(ctx context.Context, tenantID, batchRef string) ([]*domain.PaymentInstruction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.PaymentInstruction
	for _, instr := range m.instructions {
		if instr.TenantID == tenantID && instr.BatchReference == batchRef {
			out = append(out, instr)
		}
	}
	return out, nil
}

func (m *MockInstructionRepository) Update(ctx context.Context, tx usecase.Transaction, instr *domain.PaymentInstruction) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, instr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instructions[instr.ID]; !ok {
		return domain.ErrInstructionNotFound
	}
	m.instructions[instr.ID] = instr
	return nil
}

func (m *MockInstructionRepository) SetProviderReference(ctx context.Context, tx usecase.Transaction, tenantID, id, providerRef string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	instr, ok := m.instructions[id]
	if !ok || instr.TenantID != tenantID {
		return domain.ErrInstructionNotFound
	}
	instr.ProviderReference = providerRef
	instr.UpdatedAt = updatedAt
	return nil
}

// MockSettlementRepository is a mock implementation of SettlementRepository.
type MockSettlementRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.SettlementRecord
	matched map[string]string

	CreateFunc func(ctx context.Context, tx usecase.Transaction, rec *domain.SettlementRecord) error
}

func NewMockSettlementRepository() *MockSettlementRepository {
	return &MockSettlementRepository{
		records: make(map[string]*domain.SettlementRecord),
		matched: make(map[string]string),
	}
}

func (m *MockSettlementRepository) Create(ctx context.Context, tx usecase.Transaction, rec *domain.SettlementRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *MockSettlementRepository) GetByExternalReference(ctx context.Context, tenantID, externalRef string) (*domain.SettlementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.TenantID == tenantID && rec.ExternalReference == externalRef {
			return rec, nil
		}
	}
	return nil, domain.ErrSettlementNotFound
}

func (m *MockSettlementRepository) ListUnmatched(ctx context.Context, tenantID string, limit, offset int) ([]*domain.SettlementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.SettlementRecord
	for _, rec := range m.records {
		if rec.TenantID == tenantID {
			if _, ok := m.matched[rec.ID]; !ok {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (m *MockSettlementRepository) MarkMatched(ctx context.Context, tx usecase.Transaction, tenantID, id, instructionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matched[id] = instructionID
	return nil
}

// MatchedInstruction returns the instruction a record was matched to.
func (m *MockSettlementRepository) MatchedInstruction(recordID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.matched[recordID]
	return id, ok
}

// MockLiabilityRepository is a mock implementation of LiabilityRepository.
type MockLiabilityRepository struct {
	mu     sync.RWMutex
	events map[string]*domain.LiabilityEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, le *domain.LiabilityEvent) error
}

func NewMockLiabilityRepository() *MockLiabilityRepository {
	return &MockLiabilityRepository{events: make(map[string]*domain.LiabilityEvent)}
}

func (m *MockLiabilityRepository) Add(le *domain.LiabilityEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[le.ID] = le
}

func (m *MockLiabilityRepository) Create(ctx context.Context, tx usecase.Transaction, le *domain.LiabilityEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, le)
	}
	m.Add(le)
	return nil
}

func (m *MockLiabilityRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.LiabilityEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if le, ok := m.events[id]; ok && le.TenantID == tenantID {
		return le, nil
	}
	return nil, domain.ErrLiabilityNotFound
}

func (m *MockLiabilityRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, tenantID, id string) (*domain.LiabilityEvent, error) {
	return m.GetByID(ctx, tenantID, id)
}

func (m *MockLiabilityRepository) GetBySource(ctx context.Context, tenantID, sourceType, sourceID string) (*domain.LiabilityEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, le := range m.events {
		if le.TenantID == tenantID && le.SourceType == sourceType && le.SourceID == sourceID {
			return le, nil
		}
	}
	return nil, domain.ErrLiabilityNotFound
}

func (m *MockLiabilityRepository) Update(ctx context.Context, tx usecase.Transaction, le *domain.LiabilityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[le.ID]; !ok {
		return domain.ErrLiabilityNotFound
	}
	m.events[le.ID] = le
	return nil
}

func (m *MockLiabilityRepository) List(ctx context.Context, tenantID string, status domain.RecoveryStatus, limit, offset int) ([]*domain.LiabilityEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LiabilityEvent
	for _, le := range m.events {
		if le.TenantID == tenantID && (status == "" || le.RecoveryStatus == status) {
			out = append(out, le)
		}
	}
	return out, nil
}

// MockEventRepository is an in-memory append-only event log with per-tenant
// sequences.
type MockEventRepository struct {
	mu        sync.RWMutex
	events    map[string][]*domain.DomainEvent
	sequences map[string]int64

	AppendTxFunc func(ctx context.Context, tx usecase.Transaction, event *domain.DomainEvent) error
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{
		events:    make(map[string][]*domain.DomainEvent),
		sequences: make(map[string]int64),
	}
}

func (m *MockEventRepository) AppendTx(ctx context.Context, tx usecase.Transaction, event *domain.DomainEvent) error {
	if m.AppendTxFunc != nil {
		return m.AppendTxFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[event.TenantID]++
	event.Sequence = m.sequences[event.TenantID]
	m.events[event.TenantID] = append(m.events[event.TenantID], event)
	return nil
}

func (m *MockEventRepository) ListAfter(ctx context.Context, tenantID string, afterSequence int64, limit int) ([]*domain.DomainEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.DomainEvent
	for _, event := range m.events[tenantID] {
		if event.Sequence > afterSequence {
			out = append(out, event)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockEventRepository) ListByName(ctx context.Context, tenantID, name string, afterSequence int64, limit int) ([]*domain.DomainEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.DomainEvent
	for _, event := range m.events[tenantID] {
		if event.Sequence > afterSequence && event.Name == name {
			out = append(out, event)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Names returns the event names appended for a tenant, in order.
func (m *MockEventRepository) Names(tenantID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for _, event := range m.events[tenantID] {
		names = append(names, event.Name)
	}
	return names
}

// MockIdempotencyRepository is an in-memory idempotency claim store. Claims
// are tagged with their transaction so a rolled-back claim disappears, the
// way a real claim row does.
type MockIdempotencyRepository struct {
	mu      sync.Mutex
	records map[string]*usecase.IdempotencyRecord
	txs     map[string]usecase.Transaction
}

func NewMockIdempotencyRepository() *MockIdempotencyRepository {
	return &MockIdempotencyRepository{
		records: make(map[string]*usecase.IdempotencyRecord),
		txs:     make(map[string]usecase.Transaction),
	}
}

func idemKey(tenantID, kind, key string) string {
	return tenantID + "|" + kind + "|" + key
}

func (m *MockIdempotencyRepository) purge(k string) {
	if mtx, ok := m.txs[k].(*MockTransaction); ok && mtx.RolledBack {
		delete(m.records, k)
		delete(m.txs, k)
	}
}

func (m *MockIdempotencyRepository) GetTx(ctx context.Context, tx usecase.Transaction, tenantID, kind, key string) (*usecase.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := idemKey(tenantID, kind, key)
	m.purge(k)
	rec, ok := m.records[k]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (m *MockIdempotencyRepository) ClaimTx(ctx context.Context, tx usecase.Transaction, tenantID, kind, key string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := idemKey(tenantID, kind, key)
	m.purge(k)
	if _, ok := m.records[k]; ok {
		return false, nil
	}
	m.records[k] = &usecase.IdempotencyRecord{
		TenantID:  tenantID,
		Kind:      kind,
		Key:       key,
		CreatedAt: now,
	}
	m.txs[k] = tx
	return true, nil
}

func (m *MockIdempotencyRepository) SaveResultTx(ctx context.Context, tx usecase.Transaction, tenantID, kind, key string, result []byte, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[idemKey(tenantID, kind, key)]
	if !ok {
		return fmt.Errorf("no claim for %s/%s/%s", tenantID, kind, key)
	}
	rec.Result = result
	rec.CompletedAt = &now
	return nil
}

// MockCache is an in-memory Cache.
type MockCache struct {
	mu    sync.RWMutex
	items map[string][]byte

	GetFunc func(ctx context.Context, key string) ([]byte, error)
	SetFunc func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
