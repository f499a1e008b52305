package rental

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shantivaas/rental/internal/domain/rental"
	"github.com/shantivaas/rental/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memoryLedger is an in-memory store whose transactions roll back on error.
type memoryLedger struct {
	mu       sync.Mutex
	tenants  map[uuid.UUID]*rental.Tenant
	cycles   map[uuid.UUID]rental.RentCycle
	payments []rental.Payment

	creates        int
	failCreateOn   int
	getOrCreateErr error
	primaryErr     error
	fallbackErr    error
	primaryCalls   int
	fallbackCalls  int
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		tenants: make(map[uuid.UUID]*rental.Tenant),
		cycles:  make(map[uuid.UUID]rental.RentCycle),
	}
}

func (l *memoryLedger) addTenant(rent string) *rental.Tenant {
	t := &rental.Tenant{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		RoomID:      uuid.New(),
		MonthlyRent: decimal.RequireFromString(rent),
		IsActive:    true,
		JoinDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	l.tenants[t.ID] = t
	return t
}

func (l *memoryLedger) addCycle(tenant *rental.Tenant, month, year int, amount string) *rental.RentCycle {
	period := rental.BillingPeriod{Month: month, Year: year}
	c, err := rental.NewRentCycle(tenant.ID, tenant.RoomID, period, period.DueDate(5, time.UTC), decimal.RequireFromString(amount))
	if err != nil {
		panic(err)
	}
	l.cycles[c.ID] = *c
	return c
}

func (l *memoryLedger) cycle(id uuid.UUID) rental.RentCycle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cycles[id]
}

func (l *memoryLedger) paymentRows() []rental.Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]rental.Payment, len(l.payments))
	copy(out, l.payments)
	return out
}

func (l *memoryLedger) paidFor(id uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.paymentRows() {
		if p.RentCycleID == id && p.IsVerified {
			total = total.Add(p.Amount)
		}
	}
	return total
}

func (l *memoryLedger) snapshot() (map[uuid.UUID]rental.RentCycle, []rental.Payment) {
	cycles := make(map[uuid.UUID]rental.RentCycle, len(l.cycles))
	for k, v := range l.cycles {
		cycles[k] = v
	}
	payments := make([]rental.Payment, len(l.payments))
	copy(payments, l.payments)
	return cycles, payments
}

// memoryScope serialises transactions on the ledger lock
type memoryScope struct {
	ledger *memoryLedger
}

func (s *memoryScope) Execute(ctx context.Context, tenantID uuid.UUID, fn func(repos TransactionalRepositories) error) error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()

	tenant, ok := s.ledger.tenants[tenantID]
	if !ok {
		return rental.ErrTenantNotFound
	}
	cycles, payments := s.ledger.snapshot()
	if err := fn(&memoryRepos{ledger: s.ledger, tenant: tenant}); err != nil {
		s.ledger.cycles = cycles
		s.ledger.payments = payments
		return err
	}
	return nil
}

type memoryRepos struct {
	ledger *memoryLedger
	tenant *rental.Tenant
}

func (r *memoryRepos) Tenant() *rental.Tenant                { return r.tenant }
func (r *memoryRepos) CycleRepo() rental.RentCycleRepository { return &memoryCycleRepo{r.ledger} }
func (r *memoryRepos) PaymentRepo() rental.PaymentRepository { return &memoryPaymentRepo{r.ledger} }
func (r *memoryRepos) PrimaryPendingLookup() rental.PendingCycleLookup {
	return &memoryPendingLookup{ledger: r.ledger, primary: true}
}
func (r *memoryRepos) FallbackPendingLookup() rental.PendingCycleLookup {
	return &memoryPendingLookup{ledger: r.ledger}
}

// memoryCycleRepo expects the caller to hold the ledger lock when used inside a scope
type memoryCycleRepo struct {
	ledger *memoryLedger
}

func (r *memoryCycleRepo) FindByID(_ context.Context, id uuid.UUID) (*rental.RentCycle, error) {
	c, ok := r.ledger.cycles[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memoryCycleRepo) FindByPeriod(_ context.Context, tenantID uuid.UUID, period rental.BillingPeriod) (*rental.RentCycle, error) {
	for _, c := range r.ledger.cycles {
		if c.TenantID == tenantID && c.Period == period {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memoryCycleRepo) GetOrCreate(ctx context.Context, cycle *rental.RentCycle) (*rental.RentCycle, bool, error) {
	if r.ledger.getOrCreateErr != nil {
		return nil, false, r.ledger.getOrCreateErr
	}
	existing, _ := r.FindByPeriod(ctx, cycle.TenantID, cycle.Period)
	if existing != nil {
		return existing, false, nil
	}
	r.ledger.cycles[cycle.ID] = *cycle
	c := *cycle
	return &c, true, nil
}

func (r *memoryCycleRepo) list(match func(rental.RentCycle) bool) []*rental.RentCycle {
	var out []*rental.RentCycle
	for _, c := range r.ledger.cycles {
		if match(c) {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out
}

func (r *memoryCycleRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*rental.RentCycle, error) {
	return r.list(func(c rental.RentCycle) bool { return c.TenantID == tenantID }), nil
}

func (r *memoryCycleRepo) ListOpenByTenant(_ context.Context, tenantID uuid.UUID) ([]*rental.RentCycle, error) {
	return r.list(func(c rental.RentCycle) bool { return c.TenantID == tenantID && c.IsOpen() }), nil
}

func (r *memoryCycleRepo) ListOpenDueBefore(_ context.Context, before time.Time) ([]*rental.RentCycle, error) {
	return r.list(func(c rental.RentCycle) bool { return c.IsOpen() && c.DueDate.Before(before) }), nil
}

func (r *memoryCycleRepo) Save(_ context.Context, cycle *rental.RentCycle) error {
	stored, ok := r.ledger.cycles[cycle.ID]
	if !ok {
		return rental.ErrCycleNotFound
	}
	if stored.Version != cycle.Version {
		return shared.ErrConcurrencyConflict
	}
	cycle.IncrementVersion()
	r.ledger.cycles[cycle.ID] = *cycle
	return nil
}

type memoryPaymentRepo struct {
	ledger *memoryLedger
}

func (r *memoryPaymentRepo) Create(_ context.Context, p *rental.Payment) error {
	r.ledger.creates++
	if r.ledger.failCreateOn > 0 && r.ledger.creates == r.ledger.failCreateOn {
		return errors.New("connection reset by peer")
	}
	if id := p.GatewayPaymentID(); id != "" {
		for _, existing := range r.ledger.payments {
			if existing.GatewayPaymentID() == id && existing.RentCycleID == p.RentCycleID {
				return rental.ErrDuplicatePayment
			}
		}
	}
	r.ledger.payments = append(r.ledger.payments, *p)
	return nil
}

func (r *memoryPaymentRepo) ExistsByGatewayPaymentID(_ context.Context, id string) (bool, error) {
	for _, p := range r.ledger.payments {
		if p.GatewayPaymentID() == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryPaymentRepo) SumVerifiedByCycles(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	sums := make(map[uuid.UUID]decimal.Decimal)
	for _, p := range r.ledger.payments {
		if want[p.RentCycleID] && p.IsVerified {
			sums[p.RentCycleID] = sums[p.RentCycleID].Add(p.Amount)
		}
	}
	return sums, nil
}

func (r *memoryPaymentRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*rental.Payment, error) {
	var out []*rental.Payment
	for _, p := range r.ledger.payments {
		if p.TenantID == tenantID {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r *memoryPaymentRepo) List(_ context.Context, filter rental.PaymentFilter) ([]*rental.Payment, int64, error) {
	var out []*rental.Payment
	for _, p := range r.ledger.payments {
		if filter.TenantID != nil && p.TenantID != *filter.TenantID {
			continue
		}
		if filter.Mode != nil && p.Mode != *filter.Mode {
			continue
		}
		p := p
		out = append(out, &p)
	}
	return out, int64(len(out)), nil
}

type memoryTenantRepo struct {
	ledger *memoryLedger
}

func (r *memoryTenantRepo) Create(_ context.Context, tenant *rental.Tenant) error {
	for _, t := range r.ledger.tenants {
		if t.UserID == tenant.UserID {
			return rental.ErrTenantExists
		}
	}
	stored := *tenant
	r.ledger.tenants[tenant.ID] = &stored
	return nil
}

func (r *memoryTenantRepo) Save(_ context.Context, tenant *rental.Tenant) error {
	if _, ok := r.ledger.tenants[tenant.ID]; !ok {
		return rental.ErrTenantNotFound
	}
	stored := *tenant
	r.ledger.tenants[tenant.ID] = &stored
	return nil
}

func (r *memoryTenantRepo) List(_ context.Context, filter rental.TenantFilter) ([]*rental.Tenant, int64, error) {
	var out []*rental.Tenant
	for _, t := range r.ledger.tenants {
		if filter.Active != nil && t.IsActive != *filter.Active {
			continue
		}
		if filter.RoomID != nil && t.RoomID != *filter.RoomID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinDate.Before(out[j].JoinDate) })
	return out, int64(len(out)), nil
}

func (r *memoryTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*rental.Tenant, error) {
	return r.ledger.tenants[id], nil
}

func (r *memoryTenantRepo) FindByUserID(_ context.Context, userID uuid.UUID) (*rental.Tenant, error) {
	for _, t := range r.ledger.tenants {
		if t.UserID == userID {
			return t, nil
		}
	}
	return nil, nil
}

func (r *memoryTenantRepo) ListActive(_ context.Context) ([]*rental.Tenant, error) {
	var out []*rental.Tenant
	for _, t := range r.ledger.tenants {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryTenantRepo) LockForAllocation(ctx context.Context, id uuid.UUID) (*rental.Tenant, error) {
	return r.FindByID(ctx, id)
}

// memoryPendingLookup computes pending amounts from ledger rows
type memoryPendingLookup struct {
	ledger  *memoryLedger
	primary bool
}

func (l *memoryPendingLookup) ListPending(ctx context.Context, tenantID uuid.UUID) ([]rental.CycleWithPending, error) {
	if l.primary {
		l.ledger.primaryCalls++
		if l.ledger.primaryErr != nil {
			return nil, l.ledger.primaryErr
		}
	} else {
		l.ledger.fallbackCalls++
		if l.ledger.fallbackErr != nil {
			return nil, l.ledger.fallbackErr
		}
	}

	cycles, _ := (&memoryCycleRepo{l.ledger}).ListOpenByTenant(ctx, tenantID)
	ids := make([]uuid.UUID, len(cycles))
	for i, c := range cycles {
		ids[i] = c.ID
	}
	paid, _ := (&memoryPaymentRepo{l.ledger}).SumVerifiedByCycles(ctx, ids)

	var out []rental.CycleWithPending
	for _, c := range cycles {
		pending := c.PendingGiven(paid[c.ID])
		if pending.IsPositive() {
			out = append(out, rental.CycleWithPending{Cycle: c, Paid: paid[c.ID], Pending: pending})
		}
	}
	return out, nil
}

// memoryIdempotencyStore is a map-backed IdempotencyStore
type memoryIdempotencyStore struct {
	mu       sync.Mutex
	keys     map[string]bool
	released []string
	err      error
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: make(map[string]bool)}
}

func (s *memoryIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	s.released = append(s.released, key)
	return nil
}

func (s *memoryIdempotencyStore) Close() error { return nil }

// recordingMetrics counts metric calls
type recordingMetrics struct {
	allocations int
	advances    int
	replays     map[string]int
	rejections  map[string]int
	fallbacks   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{replays: map[string]int{}, rejections: map[string]int{}}
}

func (m *recordingMetrics) RecordAllocation(_ context.Context, _ string, _ int, _ decimal.Decimal, advance bool) {
	m.allocations++
	if advance {
		m.advances++
	}
}
func (m *recordingMetrics) RecordReplay(_ context.Context, source string) { m.replays[source]++ }
func (m *recordingMetrics) RecordSignatureRejected(_ context.Context, source string) {
	m.rejections[source]++
}
func (m *recordingMetrics) RecordLookupFallback(context.Context) { m.fallbacks++ }

// mockGateway is a testify mock of rental.Gateway
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) KeyID() string { return "rzp_test_key" }

func (m *mockGateway) CreateOrder(ctx context.Context, req rental.OrderRequest) (*rental.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rental.Order), args.Error(1)
}

func (m *mockGateway) FetchOrder(ctx context.Context, orderID string) (*rental.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rental.Order), args.Error(1)
}

func (m *mockGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return m.Called(orderID, paymentID, signature).Error(0)
}

func (m *mockGateway) VerifyWebhookSignature(body []byte, signature string) error {
	return m.Called(body, signature).Error(0)
}

func (m *mockGateway) ParseWebhookEvent(body []byte) (*rental.WebhookEvent, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rental.WebhookEvent), args.Error(1)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }
