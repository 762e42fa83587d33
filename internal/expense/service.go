package expense

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/AnvithShetty10/expense-share/internal/apperrors"
	"github.com/AnvithShetty10/expense-share/internal/cache"
	"github.com/AnvithShetty10/expense-share/internal/expense/split"
	"github.com/AnvithShetty10/expense-share/internal/money"
	"github.com/AnvithShetty10/expense-share/internal/user"
)

var tracer = otel.Tracer("expense")

// Store is the persistence contract of the service. *Repository is the
// Postgres implementation.
type Store interface {
	Create(ctx context.Context, e *Expense) error
	Update(ctx context.Context, e *Expense) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	ExpensesForUser(ctx context.Context, userID uuid.UUID, f Filter) ([]*Expense, error)
	CountForUser(ctx context.Context, userID uuid.UUID, f Filter) (int, error)
}

// UserDirectory answers whether a referenced user exists.
type UserDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Invalidator drops cached balances of the given users. It must not fail
// the caller.
type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...uuid.UUID)
}

// Options tunes the service.
type Options struct {
	DefaultCurrency string
	IdempotencyTTL  time.Duration
}

// Service handles expense business logic
type Service struct {
	repo        Store
	users       UserDirectory
	invalidator Invalidator
	cache       cache.Cache
	opts        Options
	logger      *zap.Logger
}

// NewService creates a new expense service with dependencies injected
func NewService(repo Store, users UserDirectory, invalidator Invalidator, c cache.Cache, opts Options, logger *zap.Logger) *Service {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "INR"
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:        repo,
		users:       users,
		invalidator: invalidator,
		cache:       c,
		opts:        opts,
		logger:      logger,
	}
}

// IdempotencyKey is the cache key a created expense is remembered under.
func IdempotencyKey(key string, userID uuid.UUID) string {
	return fmt.Sprintf("idempotency:expense:%s:%s", key, userID)
}

// Create validates the request, splits the total and persists the expense.
// With a non-empty idempotencyKey, a repeated request by the same user
// returns the expense created the first time.
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, req *CreateExpenseRequest, idempotencyKey string) (*Expense, error) {
	ctx, span := tracer.Start(ctx, "expense.Create")
	defer span.End()

	var cacheKey string
	if idempotencyKey != "" {
		cacheKey = IdempotencyKey(idempotencyKey, creatorID)
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			var e Expense
			if err := json.Unmarshal([]byte(cached), &e); err == nil {
				span.SetAttributes(attribute.Bool("idempotent_replay", true))
				return &e, nil
			}
			s.logger.Warn("discarding unreadable idempotency entry", zap.String("key", cacheKey))
		}
	}

	e, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	e.CreatorID = creatorID
	e.Currency = s.opts.DefaultCurrency

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, e.ParticipantIDs()...)

	created, err := s.reload(ctx, e)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		if data, err := json.Marshal(created); err == nil {
			s.cache.Set(ctx, cacheKey, string(data), s.opts.IdempotencyTTL)
		}
	}

	s.logger.Info("expense created",
		zap.String("expense_id", created.ID.String()),
		zap.String("split_type", string(created.SplitKind)),
		zap.Int("participants", len(created.Participants)),
	)
	return created, nil
}

// Update replaces an expense. Only its creator may update it. Balances of
// both the previous and the new participants are invalidated.
func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, req *UpdateExpenseRequest) (*Expense, error) {
	ctx, span := tracer.Start(ctx, "expense.Update")
	defer span.End()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &apperrors.NotFoundError{Resource: "Expense", ID: id.String()}
	}
	if existing.CreatorID != userID {
		return nil, &apperrors.ForbiddenError{Message: "Only the expense creator can update it"}
	}

	e, err := s.build(ctx, (*CreateExpenseRequest)(req))
	if err != nil {
		return nil, err
	}
	e.ID = existing.ID
	e.CreatorID = existing.CreatorID
	e.Currency = existing.Currency
	e.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, unionIDs(existing.ParticipantIDs(), e.ParticipantIDs())...)

	return s.reload(ctx, e)
}

// Delete removes an expense. Only its creator may delete it.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "expense.Delete")
	defer span.End()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return &apperrors.NotFoundError{Resource: "Expense", ID: id.String()}
	}
	if existing.CreatorID != userID {
		return &apperrors.ForbiddenError{Message: "Only the expense creator can delete it"}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidator.Invalidate(ctx, existing.ParticipantIDs()...)

	s.logger.Info("expense deleted", zap.String("expense_id", id.String()))
	return nil
}

// Get returns an expense visible to userID, i.e. one they participate in
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &apperrors.NotFoundError{Resource: "Expense", ID: id.String()}
	}
	if !e.HasParticipant(userID) {
		return nil, &apperrors.ForbiddenError{Message: "You are not authorized to view this expense"}
	}
	return e, nil
}

// List returns one page of userID's expenses as list items plus the total
// number of matching expenses.
func (s *Service) List(ctx context.Context, userID uuid.UUID, f Filter) ([]ListItem, int, error) {
	expenses, err := s.repo.ExpensesForUser(ctx, userID, f)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.CountForUser(ctx, userID, f)
	if err != nil {
		return nil, 0, err
	}

	items := make([]ListItem, 0, len(expenses))
	for _, e := range expenses {
		if item, ok := e.ListItemFor(userID); ok {
			items = append(items, item)
		}
	}
	return items, total, nil
}

// build validates req and turns it into an unsaved expense with calculated
// owed amounts.
func (s *Service) build(ctx context.Context, req *CreateExpenseRequest) (*Expense, error) {
	if !req.TotalAmount.IsPositive() {
		return nil, apperrors.Validationf("total amount must be greater than 0")
	}
	if !money.HasCents(req.TotalAmount) {
		return nil, apperrors.Validationf("total amount must have at most %d decimal places", money.Places)
	}
	if len(req.Participants) == 0 {
		return nil, apperrors.Validationf("at least one participant is required")
	}

	date, err := time.Parse(dateLayout, req.ExpenseDate)
	if err != nil {
		return nil, apperrors.Validationf("expense_date must be a date in YYYY-MM-DD format")
	}

	seen := make(map[uuid.UUID]struct{}, len(req.Participants))
	for _, p := range req.Participants {
		if _, dup := seen[p.UserID]; dup {
			return nil, apperrors.Validationf("user %s appears more than once in participants", p.UserID)
		}
		seen[p.UserID] = struct{}{}

		if p.AmountPaid.IsNegative() {
			return nil, apperrors.Validationf("amount paid by %s cannot be negative", p.UserID)
		}
		if err := checkPrecision(req.SplitType, p); err != nil {
			return nil, err
		}
	}

	if err := s.validateParticipantsExist(ctx, req.Participants); err != nil {
		return nil, err
	}

	inputs := req.splitInputs()
	splits, err := split.Calculate(req.TotalAmount, inputs, req.SplitType)
	if err != nil {
		return nil, err
	}
	if err := split.ValidatePaidTotal(req.TotalAmount, inputs); err != nil {
		return nil, err
	}
	if err := split.ValidateOwedTotal(req.TotalAmount, splits); err != nil {
		return nil, err
	}

	participants := make([]Participant, len(inputs))
	for i, in := range inputs {
		owed := splits[i].AmountOwed
		if !in.AmountPaid.IsPositive() && !owed.IsPositive() {
			return nil, apperrors.Validationf("participant %s must have paid or owe a non-zero amount", in.UserID)
		}

		var pct *decimal.Decimal
		if req.SplitType == split.KindPercentage {
			pct = in.Percentage
		}
		participants[i] = Participant{
			UserID:     in.UserID,
			AmountPaid: in.AmountPaid,
			AmountOwed: owed,
			Percentage: pct,
		}
	}

	return &Expense{
		Description:  req.Description,
		TotalAmount:  req.TotalAmount,
		ExpenseDate:  date,
		GroupName:    req.GroupName,
		SplitKind:    req.SplitType,
		Participants: participants,
	}, nil
}

func (s *Service) validateParticipantsExist(ctx context.Context, participants []ParticipantRequest) error {
	for _, p := range participants {
		ok, err := s.users.Exists(ctx, p.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Validationf("User with ID %s not found", p.UserID)
		}
	}
	return nil
}

// reload fetches the stored expense with its joined users. If the read
// fails after a successful write the unjoined copy is returned.
func (s *Service) reload(ctx context.Context, e *Expense) (*Expense, error) {
	stored, err := s.repo.GetByID(ctx, e.ID)
	if err != nil {
		s.logger.Warn("reload after write failed", zap.String("expense_id", e.ID.String()), zap.Error(err))
		return e, nil
	}
	if stored == nil {
		return nil, &apperrors.NotFoundError{Resource: "Expense", ID: e.ID.String()}
	}
	return stored, nil
}

func unionIDs(a, b []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(a)+len(b))
	out := make([]uuid.UUID, 0, len(a)+len(b))
	for _, ids := range [][]uuid.UUID{a, b} {
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

var _ UserDirectory = (*user.Service)(nil)

// checkPrecision rejects participant values finer than a cent, or a
// hundredth of a percent, that the split kind would use.
func checkPrecision(kind split.Kind, p ParticipantRequest) error {
	if !money.HasCents(p.AmountPaid) {
		return apperrors.Validationf("amount paid by %s must have at most %d decimal places", p.UserID, money.Places)
	}
	if kind == split.KindManual && p.AmountOwed != nil && !money.HasCents(*p.AmountOwed) {
		return apperrors.Validationf("amount owed by %s must have at most %d decimal places", p.UserID, money.Places)
	}
	if kind == split.KindPercentage && p.Percentage != nil && !money.HasCents(*p.Percentage) {
		return apperrors.Validationf("percentage for %s must have at most %d decimal places", p.UserID, money.Places)
	}
	return nil
}
