package voting

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdudkov/rigs/internal/apperr"
	"github.com/kdudkov/rigs/internal/auth"
	"github.com/kdudkov/rigs/internal/clock"
	"github.com/kdudkov/rigs/internal/database"
	"github.com/kdudkov/rigs/internal/database/dbtest"
	"github.com/kdudkov/rigs/internal/ledger"
	"github.com/kdudkov/rigs/internal/sessions"
	"github.com/kdudkov/rigs/pkg/model"
)

var (
	ctx    = context.Background()
	parent = auth.NewCaller("rigs-contract")
	admin  = auth.NewCaller("root", auth.RoleDefaultAdmin)
	alice  = auth.NewCaller("alice")
	bob    = auth.NewCaller("bob")
)

type env struct {
	r   *Registry
	l   *ledger.Ledger
	sm  *sessions.Manager
	clk *clock.Manual
	dbm *database.DatabaseManager
}

func prepare(t *testing.T) *env {
	dbm := dbtest.New(t)
	clk := clock.NewManual(100)
	policy := auth.NewPolicy(parent.Login)

	return &env{
		r:   New(dbm, clk, policy),
		l:   ledger.New(dbm, clk, policy),
		sm:  sessions.New(dbm, clk, policy),
		clk: clk,
		dbm: dbm,
	}
}

func input(start, end int64, options ...string) ProposalInput {
	return ProposalInput{
		Name:       "next rig color",
		StartBlock: start,
		EndBlock:   end,
		Options:    options,
	}
}

func TestCreateProposalValidation(t *testing.T) {
	e := prepare(t)

	_, err := e.r.CreateProposal(ctx, alice, input(100, 200, "a"))
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = e.r.CreateProposal(ctx, admin, input(200, 200, "a"))
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = e.r.CreateProposal(ctx, admin, input(100, 200))
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = e.r.CreateProposal(ctx, admin, input(100, 200, "a", " "))
	require.ErrorIs(t, err, apperr.ErrInvalid)

	in := input(100, 200, "a")
	in.Name = ""
	_, err = e.r.CreateProposal(ctx, admin, in)
	require.ErrorIs(t, err, apperr.ErrInvalid)

	assert.Zero(t, e.dbm.ProposalQuery().Count())

	p, err := e.r.CreateProposal(ctx, auth.NewCaller("pa", auth.RoleProposalsAdmin), input(100, 200, "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "pa", p.Creator)
	assert.Equal(t, int64(100), p.CreatedAt)
	require.Len(t, p.Options, 2)
	assert.NotZero(t, p.Options[0].ID)

	stored, err := e.r.Proposal(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Options, 2)
	assert.Equal(t, "a", stored.Options[0].Description)
	assert.Equal(t, "b", stored.Options[1].Description)

	_, err = e.r.Proposal(ctx, p.ID+1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSnapshotIsFrozenAtCreation(t *testing.T) {
	e := prepare(t)

	_, err := e.sm.PilotRig(ctx, parent, "alice", 1, model.InternalPilot())
	require.NoError(t, err)

	e.clk.Advance(10)

	p, err := e.r.CreateProposal(ctx, admin, input(110, 500, "yes", "no"))
	require.NoError(t, err)

	snap, err := e.r.Snapshot(ctx, p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), snap)

	// alice is still flying
	e.clk.Advance(50)

	ft, err := e.l.FlightTime(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(60), ft)

	_, err = e.r.CastVote(ctx, alice, p.ID, p.Options[0].ID, 11, "")
	require.ErrorIs(t, err, apperr.ErrInsufficientWeight)

	v, err := e.r.CastVote(ctx, alice, p.ID, p.Options[0].ID, 10, "all in")
	require.NoError(t, err)
	assert.Equal(t, int64(160), v.CastAt)

	// no FT at creation means no weight
	snap, err = e.r.Snapshot(ctx, p.ID, "bob")
	require.NoError(t, err)
	assert.Zero(t, snap)

	_, err = e.r.CastVote(ctx, bob, p.ID, p.Options[0].ID, 1, "")
	require.ErrorIs(t, err, apperr.ErrInsufficientWeight)

	_, err = e.r.Snapshot(ctx, p.ID+1, "alice")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Len(t, e.r.Snapshots(ctx, p.ID, 0), 1)
}

func TestSplitAndDuplicateVotes(t *testing.T) {
	e := prepare(t)

	_, err := e.l.Grant(ctx, admin, "alice", 10, model.RewardDiscretionary)
	require.NoError(t, err)

	p, err := e.r.CreateProposal(ctx, admin, input(100, 200, "a", "b", "c"))
	require.NoError(t, err)

	a, b := p.Options[0].ID, p.Options[1].ID

	_, err = e.r.CastVote(ctx, alice, p.ID, a, 4, "")
	require.NoError(t, err)

	_, err = e.r.CastVote(ctx, alice, p.ID, a, 1, "")
	require.ErrorIs(t, err, apperr.ErrDuplicate)

	_, err = e.r.CastVote(ctx, alice, p.ID, b, 7, "")
	require.ErrorIs(t, err, apperr.ErrInsufficientWeight)

	_, err = e.r.CastVote(ctx, alice, p.ID, b, 6, "")
	require.NoError(t, err)

	assert.Len(t, e.r.Votes(ctx, p.ID, "alice"), 2)

	_, err = e.r.CastVote(ctx, alice, p.ID, 9999, 1, "")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.r.CastVote(ctx, alice, p.ID+1, a, 1, "")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.r.CastVote(ctx, alice, p.ID, a, 0, "")
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = e.r.CastVote(ctx, nil, p.ID, a, 1, "")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestTally(t *testing.T) {
	e := prepare(t)

	_, err := e.l.Grant(ctx, admin, "alice", 10, model.RewardDiscretionary)
	require.NoError(t, err)
	_, err = e.l.Grant(ctx, admin, "bob", 2, model.RewardDiscretionary)
	require.NoError(t, err)

	p, err := e.r.CreateProposal(ctx, admin, input(100, 200, "A", "B", "C"))
	require.NoError(t, err)

	a, b := p.Options[0].ID, p.Options[1].ID

	_, err = e.r.CastVote(ctx, alice, p.ID, a, 3, "")
	require.NoError(t, err)
	_, err = e.r.CastVote(ctx, bob, p.ID, a, 2, "")
	require.NoError(t, err)
	_, err = e.r.CastVote(ctx, alice, p.ID, b, 5, "")
	require.NoError(t, err)

	tally, err := e.r.Tally(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tally.Options, 3)

	assert.Equal(t, model.ProposalOpen, tally.State)
	assert.Equal(t, int64(10), tally.Total)

	assert.Equal(t, "A", tally.Options[0].Description)
	assert.Equal(t, int64(5), tally.Options[0].Weight)
	assert.Equal(t, int64(2), tally.Options[0].Voters)

	assert.Equal(t, int64(5), tally.Options[1].Weight)
	assert.Equal(t, int64(1), tally.Options[1].Voters)

	assert.Equal(t, "C", tally.Options[2].Description)
	assert.Zero(t, tally.Options[2].Weight)
	assert.Zero(t, tally.Options[2].Voters)

	_, err = e.r.Tally(ctx, p.ID+1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVoterRewardGrantedOnce(t *testing.T) {
	e := prepare(t)

	_, err := e.l.Grant(ctx, admin, "alice", 10, model.RewardDiscretionary)
	require.NoError(t, err)

	in := input(100, 200, "a", "b")
	in.VoterFTReward = 7

	p, err := e.r.CreateProposal(ctx, admin, in)
	require.NoError(t, err)

	_, err = e.r.CastVote(ctx, alice, p.ID, p.Options[0].ID, 3, "")
	require.NoError(t, err)
	_, err = e.r.CastVote(ctx, alice, p.ID, p.Options[1].ID, 2, "")
	require.NoError(t, err)

	grants := e.dbm.RewardQuery().Recipient("alice").Reason(model.RewardVote).Get()
	require.Len(t, grants, 1)
	assert.Equal(t, int64(7), grants[0].Amount)
	require.NotNil(t, grants[0].ProposalID)
	assert.Equal(t, p.ID, *grants[0].ProposalID)

	ft, err := e.l.FlightTime(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(17), ft)

	// reward does not change the frozen weight
	_, err = e.r.CastVote(ctx, alice, p.ID, p.Options[0].ID, 6, "")
	require.ErrorIs(t, err, apperr.ErrDuplicate)

	snap, err := e.r.Snapshot(ctx, p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), snap)
}

func TestVotingWindow(t *testing.T) {
	e := prepare(t)

	_, err := e.l.Grant(ctx, admin, "alice", 10, model.RewardDiscretionary)
	require.NoError(t, err)

	p, err := e.r.CreateProposal(ctx, admin, input(150, 200, "a"))
	require.NoError(t, err)

	opt := p.Options[0].ID

	_, err = e.r.CastVote(ctx, alice, p.ID, opt, 1, "")
	require.ErrorIs(t, err, apperr.ErrNotOpen)

	e.clk.Set(150)

	_, err = e.r.CastVote(ctx, alice, p.ID, opt, 1, "")
	require.NoError(t, err)

	e.clk.Set(200)

	_, err = e.r.CastVote(ctx, bob, p.ID, opt, 1, "")
	require.ErrorIs(t, err, apperr.ErrNotOpen)

	tally, err := e.r.Tally(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalClosed, tally.State)
	assert.Equal(t, int64(1), tally.Total)
}

func TestProposalsList(t *testing.T) {
	e := prepare(t)

	for i := 0; i < 3; i++ {
		_, err := e.r.CreateProposal(ctx, admin, input(100, 200, "a"))
		require.NoError(t, err)
	}

	list := e.r.Proposals(ctx, 0, 0)
	require.Len(t, list, 3)
	assert.Greater(t, list[0].ID, list[1].ID)
	assert.Len(t, list[0].Options, 1)

	assert.Len(t, e.r.Proposals(ctx, 2, 0), 2)
	assert.Len(t, e.r.Proposals(ctx, 2, 2), 1)
}

func TestZeroIdsAreNotFound(t *testing.T) {
	e := prepare(t)

	_, err := e.l.Grant(ctx, admin, "alice", 10, model.RewardDiscretionary)
	require.NoError(t, err)

	p, err := e.r.CreateProposal(ctx, admin, input(100, 200, "a"))
	require.NoError(t, err)

	_, err = e.r.CastVote(ctx, alice, 0, p.Options[0].ID, 3, "")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.r.CastVote(ctx, alice, p.ID, 0, 3, "")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Zero(t, e.dbm.VoteQuery().Count())

	_, err = e.r.Tally(ctx, 0)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.r.Snapshot(ctx, 0, "alice")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.r.Proposal(ctx, 0)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentVotesStayWithinSnapshot(t *testing.T) {
	e := prepare(t)

	_, err := e.l.Grant(ctx, admin, "alice", 10, model.RewardDiscretionary)
	require.NoError(t, err)

	in := input(100, 200, "a", "b", "c", "d")
	in.VoterFTReward = 5

	p, err := e.r.CreateProposal(ctx, admin, in)
	require.NoError(t, err)

	var (
		wg           sync.WaitGroup
		mx           sync.Mutex
		ok           int
		insufficient int
	)

	for _, o := range p.Options {
		wg.Add(1)

		go func(optionID uint) {
			defer wg.Done()

			_, err := e.r.CastVote(ctx, alice, p.ID, optionID, 6, "")

			mx.Lock()
			defer mx.Unlock()

			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrInsufficientWeight):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(o.ID)
	}

	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, insufficient)

	committed, err := e.dbm.VoteQuery().Proposal(p.ID).Identity("alice").SumWeight()
	require.NoError(t, err)
	assert.Equal(t, int64(6), committed)

	assert.Equal(t, int64(1), e.dbm.RewardQuery().Recipient("alice").Reason(model.RewardVote).Count())
}

func TestWalletFTIsNotPooled(t *testing.T) {
	e := prepare(t)

	_, err := e.l.Grant(ctx, admin, "0xalice", 10, model.RewardDiscretionary)
	require.NoError(t, err)
	_, err = e.l.Grant(ctx, admin, "alice", 2, model.RewardDiscretionary)
	require.NoError(t, err)

	p, err := e.r.CreateProposal(ctx, admin, input(100, 200, "a", "b"))
	require.NoError(t, err)

	withWallet := auth.NewCaller("alice")
	withWallet.Wallets = []string{"0xalice"}

	_, err = e.r.CastVote(ctx, withWallet, p.ID, p.Options[0].ID, 3, "")
	require.ErrorIs(t, err, apperr.ErrInsufficientWeight)

	_, err = e.r.CastVote(ctx, withWallet, p.ID, p.Options[0].ID, 2, "")
	require.NoError(t, err)

	_, err = e.r.CastVote(ctx, auth.NewCaller("0xalice"), p.ID, p.Options[1].ID, 10, "")
	require.NoError(t, err)
}
