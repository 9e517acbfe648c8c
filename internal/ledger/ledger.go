// Package ledger computes flight time (FT): session time of an identity plus
// the reward grants it received. Nothing but grants is stored; every value is
// aggregated at read time.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kdudkov/rigs/internal/apperr"
	"github.com/kdudkov/rigs/internal/auth"
	"github.com/kdudkov/rigs/internal/clock"
	"github.com/kdudkov/rigs/internal/database"
	"github.com/kdudkov/rigs/pkg/model"
	"github.com/kdudkov/rigs/pkg/util"
)

type Ledger struct {
	dbm    *database.DatabaseManager
	clock  clock.Source
	auth   auth.Authorizer
	logger *slog.Logger
}

type Balance struct {
	Identity string `json:"identity"`
	Sessions int64  `json:"sessions"`
	Grants   int64  `json:"grants"`
	FT       int64  `json:"ft"`
}

func New(dbm *database.DatabaseManager, clk clock.Source, az auth.Authorizer) *Ledger {
	return &Ledger{
		dbm:    dbm,
		clock:  clk,
		auth:   az,
		logger: slog.Default().With("logger", "ledger"),
	}
}

func (l *Ledger) Now() int64 {
	return l.clock.Height()
}

// FlightTime sums FT of all given identities at the current height. Open
// sessions count up to now.
func (l *Ledger) FlightTime(ctx context.Context, identities ...string) (int64, error) {
	return FlightTimeAt(l.dbm.WithContext(ctx), l.clock.Height(), identities...)
}

// FlightTimeAt is FlightTime as of height h.
func (l *Ledger) FlightTimeAt(ctx context.Context, h int64, identities ...string) (int64, error) {
	return FlightTimeAt(l.dbm.WithContext(ctx), h, identities...)
}

// FlightTimeAt aggregates on dbm, which may be bound to a transaction.
func FlightTimeAt(dbm *database.DatabaseManager, h int64, identities ...string) (int64, error) {
	ids := util.NewSet(identities...)
	ids.Remove("")

	if len(ids) == 0 {
		return 0, nil
	}

	list := ids.List()

	sessions, err := dbm.SessionQuery().Owner(list...).SumDuration(h)
	if err != nil {
		return 0, fmt.Errorf("session time: %w", err)
	}

	grants, err := dbm.RewardQuery().Recipient(list...).GrantedBy(h).SumAmount()
	if err != nil {
		return 0, fmt.Errorf("grants: %w", err)
	}

	return sessions + grants, nil
}

// Balances returns FT of every identity that owns a session or got a grant,
// largest first.
func (l *Ledger) Balances(ctx context.Context) ([]*Balance, error) {
	return BalancesAt(l.dbm.WithContext(ctx), l.clock.Height())
}

func BalancesAt(dbm *database.DatabaseManager, h int64) ([]*Balance, error) {
	sessions, err := dbm.SessionQuery().DurationByOwner(h)
	if err != nil {
		return nil, fmt.Errorf("session time: %w", err)
	}

	grants, err := dbm.RewardQuery().GrantedBy(h).AmountByRecipient()
	if err != nil {
		return nil, fmt.Errorf("grants: %w", err)
	}

	m := make(map[string]*Balance, len(sessions))

	get := func(id string) *Balance {
		if b, ok := m[id]; ok {
			return b
		}

		b := &Balance{Identity: id}
		m[id] = b

		return b
	}

	for _, s := range sessions {
		get(s.Identity).Sessions += s.Amount
	}

	for _, g := range grants {
		get(g.Identity).Grants += g.Amount
	}

	res := make([]*Balance, 0, len(m))

	for _, b := range m {
		b.FT = b.Sessions + b.Grants
		res = append(res, b)
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].FT != res[j].FT {
			return res[i].FT > res[j].FT
		}

		return res[i].Identity < res[j].Identity
	})

	return res, nil
}

// Grant credits a discretionary reward. Only the default admin may do it.
func (l *Ledger) Grant(ctx context.Context, caller *auth.Caller, recipient string, amount int64, reason model.RewardReason) (*model.RewardGrant, error) {
	if !l.auth.IsDefaultAdmin(caller) {
		return nil, fmt.Errorf("%s can't grant: %w", caller.GetLogin(), apperr.ErrUnauthorized)
	}

	if recipient == "" || amount <= 0 {
		return nil, fmt.Errorf("%w: need recipient and positive amount", apperr.ErrInvalid)
	}

	if reason == "" {
		reason = model.RewardDiscretionary
	}

	if !reason.Valid() {
		return nil, fmt.Errorf("%w: unknown reason %q", apperr.ErrInvalid, reason)
	}

	g := &model.RewardGrant{
		Block:     l.clock.Height(),
		Recipient: recipient,
		Reason:    reason,
		Amount:    amount,
		GrantedBy: caller.GetLogin(),
	}

	if err := l.dbm.WithContext(ctx).Create(g); err != nil {
		return nil, err
	}

	l.logger.Info("ft granted", slog.String("recipient", recipient), slog.Int64("amount", amount),
		slog.String("reason", string(reason)), slog.String("by", caller.GetLogin()))

	return g, nil
}

func (l *Ledger) Grants(ctx context.Context, limit int, recipients ...string) []*model.RewardGrant {
	q := l.dbm.WithContext(ctx).RewardQuery().Recipient(recipients...)

	if limit > 0 {
		q = q.Limit(limit)
	}

	return q.Get()
}
