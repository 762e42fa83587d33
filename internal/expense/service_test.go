package expense

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnvithShetty10/expense-share/internal/apperrors"
	"github.com/AnvithShetty10/expense-share/internal/cache"
	"github.com/AnvithShetty10/expense-share/internal/expense/split"
)

// --- fakes ---

type fakeStore struct {
	mu       sync.Mutex
	expenses map[uuid.UUID]*Expense
	creates  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{expenses: make(map[uuid.UUID]*Expense)}
}

func (f *fakeStore) Create(_ context.Context, e *Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	for i := range e.Participants {
		e.Participants[i].ExpenseID = e.ID
	}
	cp := *e
	f.expenses[e.ID] = &cp
	return nil
}

func (f *fakeStore) Update(_ context.Context, e *Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[e.ID]; !ok {
		return errors.New("no such expense")
	}
	cp := *e
	f.expenses[e.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.expenses, id)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) ExpensesForUser(_ context.Context, userID uuid.UUID, flt Filter) ([]*Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Expense
	for _, e := range f.expenses {
		if e.HasParticipant(userID) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpenseDate.After(out[j].ExpenseDate) })
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeStore) CountForUser(ctx context.Context, userID uuid.UUID, _ Filter) (int, error) {
	all, _ := f.ExpensesForUser(ctx, userID, Filter{})
	return len(all), nil
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type recordingInvalidator struct {
	calls [][]uuid.UUID
}

func (r *recordingInvalidator) Invalidate(_ context.Context, ids ...uuid.UUID) {
	r.calls = append(r.calls, ids)
}

func (r *recordingInvalidator) last() []uuid.UUID {
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

type fixture struct {
	svc   *Service
	store *fakeStore
	users *MockUsers
	inval *recordingInvalidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	users := new(MockUsers)
	users.On("Exists", mock.Anything, mock.Anything).Return(true, nil).Maybe()
	inval := &recordingInvalidator{}
	svc := NewService(store, users, inval, cache.NewMemory(0), Options{}, zap.NewNop())
	return &fixture{svc: svc, store: store, users: users, inval: inval}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func equalRequest(total string, payer uuid.UUID, others ...uuid.UUID) *CreateExpenseRequest {
	req := &CreateExpenseRequest{
		Description: "Dinner",
		TotalAmount: d(total),
		ExpenseDate: "2024-01-15",
		SplitType:   split.KindEqual,
	}
	req.Participants = append(req.Participants, ParticipantRequest{UserID: payer, AmountPaid: d(total)})
	for _, o := range others {
		req.Participants = append(req.Participants, ParticipantRequest{UserID: o})
	}
	return req
}

func TestService_CreateEqual(t *testing.T) {
	f := newFixture(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	e, err := f.svc.Create(context.Background(), a, equalRequest("100.00", a, b, c), "")

	require.NoError(t, err)
	assert.Equal(t, a, e.CreatorID)
	assert.Equal(t, "INR", e.Currency)
	require.Len(t, e.Participants, 3)
	assert.True(t, d("33.33").Equal(e.Participants[0].AmountOwed))
	assert.True(t, d("33.33").Equal(e.Participants[1].AmountOwed))
	assert.True(t, d("33.34").Equal(e.Participants[2].AmountOwed))
	assert.ElementsMatch(t, []uuid.UUID{a, b, c}, f.inval.last())
}

func TestService_CreatePercentageKeepsPercentages(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.New(), uuid.New()
	req := &CreateExpenseRequest{
		Description: "Rent",
		TotalAmount: d("1000"),
		ExpenseDate: "2024-02-01",
		SplitType:   split.KindPercentage,
		Participants: []ParticipantRequest{
			{UserID: a, AmountPaid: d("1000"), Percentage: dp("60")},
			{UserID: b, Percentage: dp("40")},
		},
	}

	e, err := f.svc.Create(context.Background(), a, req, "")

	require.NoError(t, err)
	assert.True(t, d("600").Equal(e.Participants[0].AmountOwed))
	assert.True(t, d("400").Equal(e.Participants[1].AmountOwed))
	require.NotNil(t, e.Participants[1].Percentage)
	assert.True(t, d("40").Equal(*e.Participants[1].Percentage))
}

func TestService_CreateValidation(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	tests := []struct {
		name   string
		mutate func(*CreateExpenseRequest)
		want   string
	}{
		{"non-positive total", func(r *CreateExpenseRequest) { r.TotalAmount = d("0") }, "greater than 0"},
		{"bad date", func(r *CreateExpenseRequest) { r.ExpenseDate = "15/01/2024" }, "expense_date"},
		{"duplicate participant", func(r *CreateExpenseRequest) {
			r.Participants = append(r.Participants, ParticipantRequest{UserID: b})
		}, "more than once"},
		{"negative paid", func(r *CreateExpenseRequest) {
			r.Participants[1].AmountPaid = d("-1")
			r.Participants[0].AmountPaid = d("101")
		}, "negative"},
		{"paid mismatch", func(r *CreateExpenseRequest) { r.Participants[0].AmountPaid = d("90") }, "amounts paid"},
		{"unknown split", func(r *CreateExpenseRequest) { r.SplitType = "SHARES" }, "unknown split type"},
		{"manual mismatch", func(r *CreateExpenseRequest) {
			r.SplitType = split.KindManual
			r.Participants[0].AmountOwed = dp("50")
			r.Participants[1].AmountOwed = dp("49.98")
		}, "must equal"},
		{"sub-cent total", func(r *CreateExpenseRequest) {
			r.TotalAmount = d("100.005")
			r.Participants[0].AmountPaid = d("100.005")
		}, "total amount must have at most 2 decimal places"},
		{"sub-cent paid", func(r *CreateExpenseRequest) {
			r.Participants[0].AmountPaid = d("99.995")
			r.Participants[1].AmountPaid = d("0.005")
		}, "amount paid by"},
		{"sub-cent manual owed", func(r *CreateExpenseRequest) {
			r.SplitType = split.KindManual
			r.Participants[0].AmountOwed = dp("33.333")
			r.Participants[1].AmountOwed = dp("66.667")
		}, "amount owed by"},
		{"sub-cent percentage", func(r *CreateExpenseRequest) {
			r.SplitType = split.KindPercentage
			r.Participants[0].Percentage = dp("33.333")
			r.Participants[1].Percentage = dp("66.667")
		}, "percentage for"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := equalRequest("100", a, b)
			tt.mutate(req)

			_, err := f.svc.Create(context.Background(), a, req, "")

			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), "got %T: %v", err, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Zero(t, f.store.creates)
			assert.Empty(t, f.inval.calls)
		})
	}
}

func TestService_CreateAcceptsTrailingZeros(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.New(), uuid.New()

	e, err := f.svc.Create(context.Background(), a, equalRequest("100.500", a, b), "")

	require.NoError(t, err)
	assert.True(t, d("50.25").Equal(e.Participants[0].AmountOwed))
	assert.True(t, d("50.25").Equal(e.Participants[1].AmountOwed))
}

func TestNewService_NilLogger(t *testing.T) {
	store := newFakeStore()
	users := new(MockUsers)
	users.On("Exists", mock.Anything, mock.Anything).Return(true, nil).Maybe()
	svc := NewService(store, users, &recordingInvalidator{}, cache.NewMemory(0), Options{}, nil)
	a, b := uuid.New(), uuid.New()

	assert.NotPanics(t, func() {
		_, err := svc.Create(context.Background(), a, equalRequest("10", a, b), "")
		require.NoError(t, err)
	})
}

func TestService_CreateRejectsIdleParticipant(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.New(), uuid.New()
	req := &CreateExpenseRequest{
		Description: "Taxi",
		TotalAmount: d("100"),
		ExpenseDate: "2024-01-15",
		SplitType:   split.KindManual,
		Participants: []ParticipantRequest{
			{UserID: a, AmountPaid: d("100"), AmountOwed: dp("100")},
			{UserID: b, AmountOwed: dp("0")},
		},
	}

	_, err := f.svc.Create(context.Background(), a, req, "")

	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "non-zero")
}

func TestService_CreateUnknownUser(t *testing.T) {
	store := newFakeStore()
	users := new(MockUsers)
	a, ghost := uuid.New(), uuid.New()
	users.On("Exists", mock.Anything, a).Return(true, nil)
	users.On("Exists", mock.Anything, ghost).Return(false, nil)
	svc := NewService(store, users, &recordingInvalidator{}, cache.NewMemory(0), Options{}, zap.NewNop())

	_, err := svc.Create(context.Background(), a, equalRequest("10", a, ghost), "")

	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), ghost.String())
	assert.Zero(t, store.creates)
}

func TestService_CreateIdempotent(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.New(), uuid.New()
	ctx := context.Background()

	first, err := f.svc.Create(ctx, a, equalRequest("50", a, b), "key-1")
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, a, equalRequest("50", a, b), "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.TotalAmount.Equal(second.TotalAmount))
	assert.Equal(t, 1, f.store.creates)

	// same key from another user is a different request
	_, err = f.svc.Create(ctx, b, equalRequest("50", b, a), "key-1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.creates)
}

func TestService_Update(t *testing.T) {
	f := newFixture(t)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	ctx := context.Background()

	created, err := f.svc.Create(ctx, a, equalRequest("30", a, b), "")
	require.NoError(t, err)

	t.Run("forbidden for non-creator", func(t *testing.T) {
		req := UpdateExpenseRequest(*equalRequest("30", a, b))
		_, err := f.svc.Update(ctx, created.ID, b, &req)
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("not found", func(t *testing.T) {
		req := UpdateExpenseRequest(*equalRequest("30", a, b))
		_, err := f.svc.Update(ctx, uuid.New(), a, &req)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("replaces participants and invalidates old and new", func(t *testing.T) {
		req := UpdateExpenseRequest(*equalRequest("60", a, c))
		updated, err := f.svc.Update(ctx, created.ID, a, &req)

		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.True(t, d("60").Equal(updated.TotalAmount))
		assert.False(t, updated.HasParticipant(b))
		assert.True(t, updated.HasParticipant(c))
		assert.ElementsMatch(t, []uuid.UUID{a, b, c}, f.inval.last())
	})
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.New(), uuid.New()
	ctx := context.Background()

	created, err := f.svc.Create(ctx, a, equalRequest("20", a, b), "")
	require.NoError(t, err)

	assert.True(t, apperrors.IsForbidden(f.svc.Delete(ctx, created.ID, b)))
	assert.True(t, apperrors.IsNotFound(f.svc.Delete(ctx, uuid.New(), a)))

	require.NoError(t, f.svc.Delete(ctx, created.ID, a))
	assert.ElementsMatch(t, []uuid.UUID{a, b}, f.inval.last())

	_, err = f.svc.Get(ctx, created.ID, a)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_Get(t *testing.T) {
	f := newFixture(t)
	a, b, outsider := uuid.New(), uuid.New(), uuid.New()
	ctx := context.Background()

	created, err := f.svc.Create(ctx, a, equalRequest("20", a, b), "")
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, created.ID, b)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = f.svc.Get(ctx, created.ID, outsider)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestService_List(t *testing.T) {
	f := newFixture(t)
	a, b := uuid.New(), uuid.New()
	ctx := context.Background()

	older := equalRequest("40", a, b)
	older.ExpenseDate = "2024-01-01"
	newer := equalRequest("10", b, a)
	newer.ExpenseDate = "2024-03-01"
	_, err := f.svc.Create(ctx, a, older, "")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, b, newer, "")
	require.NoError(t, err)

	items, total, err := f.svc.List(ctx, a, Filter{Limit: 20})

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)

	// newest first: b paid 10, a owes 5
	assert.Equal(t, ShareDebit, items[0].ShareType)
	assert.True(t, d("5").Equal(items[0].YourShare))
	// a paid 40, owes 20
	assert.Equal(t, ShareCredit, items[1].ShareType)
	assert.True(t, d("20").Equal(items[1].YourShare))
}

func TestUnionIDs(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	assert.Equal(t, []uuid.UUID{a, b, c}, unionIDs([]uuid.UUID{a, b}, []uuid.UUID{b, c, a}))
}
