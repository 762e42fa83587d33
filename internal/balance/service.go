// Package balance nets historical expense participations into per-user
// balances. Results are derived on read and cached per user.
package balance

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AnvithShetty10/expense-share/internal/apperrors"
	"github.com/AnvithShetty10/expense-share/internal/cache"
	"github.com/AnvithShetty10/expense-share/internal/expense"
	"github.com/AnvithShetty10/expense-share/internal/money"
	"github.com/AnvithShetty10/expense-share/internal/observability"
	"github.com/AnvithShetty10/expense-share/internal/user"
)

// DefaultCacheTTL is how long a computed balance list stays cached.
const DefaultCacheTTL = time.Hour

const cacheName = "balance"

var tracer = otel.Tracer("balance")

// CacheKey is the key the balance list of userID is cached under.
func CacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("balance:%s", userID)
}

// Service computes balances. It holds no mutable state and is safe for
// concurrent use.
type Service struct {
	repo    Repository
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewService creates a balance service. A non-positive ttl selects
// DefaultCacheTTL; metrics may be nil.
func NewService(repo Repository, c cache.Cache, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

// PairwiseBalance returns what b owes a across every expense both took
// part in. Negative means a owes b.
func (s *Service) PairwiseBalance(ctx context.Context, a, b uuid.UUID) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "balance.PairwiseBalance")
	defer span.End()

	expenses, err := s.repo.ExpensesForUser(ctx, a, expense.Filter{})
	if err != nil {
		return decimal.Zero, err
	}
	return Pairwise(a, b, expenses), nil
}

// BalancesFor lists the non-zero balances of userID against everyone they
// share an expense with, largest amount first. With useCache false the
// cache is neither read nor written.
func (s *Service) BalancesFor(ctx context.Context, userID uuid.UUID, useCache bool) ([]Balance, error) {
	ctx, span := tracer.Start(ctx, "balance.BalancesFor")
	defer span.End()
	span.SetAttributes(attribute.Bool("use_cache", useCache))

	var (
		nets map[uuid.UUID]decimal.Decimal
		hit  bool
	)
	if useCache {
		nets, hit = s.cached(ctx, userID)
	}
	span.SetAttributes(attribute.Bool("cache_hit", hit))

	if !hit {
		var err error
		nets, err = s.compute(ctx, userID)
		if err != nil {
			return nil, err
		}
		if useCache {
			s.store(ctx, userID, nets)
		}
	}

	return s.resolve(ctx, nets)
}

// Summary aggregates the balances of userID.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID, useCache bool) (*Summary, error) {
	balances, err := s.BalancesFor(ctx, userID, useCache)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		TotalYouOwe:    decimal.Zero,
		TotalOwedToYou: decimal.Zero,
	}
	for _, b := range balances {
		switch b.Type {
		case OwesYou:
			sum.TotalOwedToYou = sum.TotalOwedToYou.Add(b.Amount)
			sum.NumPeopleOweYou++
		case YouOwe:
			sum.TotalYouOwe = sum.TotalYouOwe.Add(b.Amount)
			sum.NumPeopleYouOwe++
		}
	}
	sum.OverallBalance = money.Round(sum.TotalOwedToYou.Sub(sum.TotalYouOwe))
	sum.TotalOwedToYou = money.Round(sum.TotalOwedToYou)
	sum.TotalYouOwe = money.Round(sum.TotalYouOwe)
	return sum, nil
}

// BalanceWith returns the balance between current and other together with
// their shared expenses, newest first.
func (s *Service) BalanceWith(ctx context.Context, current, other uuid.UUID) (*Detail, error) {
	ctx, span := tracer.Start(ctx, "balance.BalanceWith")
	defer span.End()
	start := time.Now()

	var (
		users    map[uuid.UUID]*user.User
		expenses []*expense.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.repo.UsersByIDs(gctx, []uuid.UUID{other})
		if err != nil {
			return err
		}
		users = found
		return nil
	})
	g.Go(func() error {
		var err error
		expenses, err = s.repo.ExpensesForUser(gctx, current, expense.Filter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	u, ok := users[other]
	if !ok {
		return nil, &apperrors.NotFoundError{Resource: "User", ID: other.String()}
	}

	shared := make([]expense.ListItem, 0)
	for _, e := range expenses {
		if !e.HasParticipant(other) {
			continue
		}
		if item, ok := e.ListItemFor(current); ok {
			shared = append(shared, item)
		}
	}
	sort.SliceStable(shared, func(i, j int) bool {
		return shared[i].Date.After(shared[j].Date)
	})

	detail := &Detail{
		Balance:        newBalance(u.ToSummary(), Pairwise(current, other, expenses)),
		SharedExpenses: shared,
	}
	s.metrics.ObserveCompute("balance_with", time.Since(start))
	return detail, nil
}

// Invalidate drops the cached balance lists of userIDs. Failures are logged
// by the cache adapter and never reach the caller.
func (s *Service) Invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if len(userIDs) == 0 {
		return
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = CacheKey(id)
	}
	if !s.cache.DeleteMany(ctx, keys...) {
		s.logger.Warn("balance invalidation incomplete", zap.Strings("keys", keys))
		return
	}
	s.metrics.AddInvalidations(len(keys))
}

// compute nets userID against every counterparty and drops zero balances.
func (s *Service) compute(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	start := time.Now()

	participations, err := s.repo.ParticipationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	expenses := expensesOf(participations)
	nets := make(map[uuid.UUID]decimal.Decimal)
	for _, other := range counterparties(userID, participations) {
		if net := Pairwise(userID, other, expenses); !net.IsZero() {
			nets[other] = net
		}
	}

	s.metrics.ObserveCompute("balances_for", time.Since(start))
	return nets, nil
}

func (s *Service) cached(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]decimal.Decimal, bool) {
	key := CacheKey(userID)
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		s.metrics.IncrCacheMiss(cacheName)
		return nil, false
	}

	nets, err := decodeNets(raw)
	if err != nil {
		s.logger.Warn("discarding unreadable balance cache entry", zap.String("key", key), zap.Error(err))
		s.metrics.IncrCacheMiss(cacheName)
		return nil, false
	}

	s.metrics.IncrCacheHit(cacheName)
	return nets, true
}

func decodeNets(raw string) (map[uuid.UUID]decimal.Decimal, error) {
	var encoded map[string]string
	if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
		return nil, err
	}

	nets := make(map[uuid.UUID]decimal.Decimal, len(encoded))
	for id, amount := range encoded {
		uid, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		nets[uid] = d
	}
	return nets, nil
}

func (s *Service) store(ctx context.Context, userID uuid.UUID, nets map[uuid.UUID]decimal.Decimal) {
	encoded := make(map[string]string, len(nets))
	for id, amount := range nets {
		encoded[id.String()] = amount.String()
	}
	data, err := json.Marshal(encoded)
	if err != nil {
		s.logger.Warn("encoding balance cache entry failed", zap.Error(err))
		return
	}
	s.cache.Set(ctx, CacheKey(userID), string(data), s.ttl)
}

// resolve attaches user details to nets and orders the result. Counterparties
// that no longer exist are left out.
func (s *Service) resolve(ctx context.Context, nets map[uuid.UUID]decimal.Decimal) ([]Balance, error) {
	balances := make([]Balance, 0, len(nets))
	if len(nets) == 0 {
		return balances, nil
	}

	ids := make([]uuid.UUID, 0, len(nets))
	for id := range nets {
		ids = append(ids, id)
	}
	// map iteration order is random; fix it so equal amounts keep a stable order
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	users, err := s.repo.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			s.logger.Debug("skipping balance with deleted user", zap.String("user_id", id.String()))
			continue
		}
		balances = append(balances, newBalance(u.ToSummary(), nets[id]))
	}

	sort.SliceStable(balances, func(i, j int) bool {
		return balances[i].Amount.GreaterThan(balances[j].Amount)
	})
	return balances, nil
}

var _ expense.Invalidator = (*Service)(nil)
