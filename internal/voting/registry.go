package voting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kdudkov/rigs/internal/apperr"
	"github.com/kdudkov/rigs/internal/auth"
	"github.com/kdudkov/rigs/internal/clock"
	"github.com/kdudkov/rigs/internal/database"
	"github.com/kdudkov/rigs/internal/ledger"
	"github.com/kdudkov/rigs/pkg/model"
)

// Registry keeps proposals and FT weighted votes. Vote weight is limited by
// the FT snapshot taken when the proposal was created.
type Registry struct {
	dbm    *database.DatabaseManager
	clock  clock.Source
	auth   auth.Authorizer
	logger *slog.Logger
}

type ProposalInput struct {
	Name           string   `json:"name"`
	DescriptionRef string   `json:"description_ref"`
	VoterFTReward  int64    `json:"voter_ft_reward"`
	StartBlock     int64    `json:"start_block"`
	EndBlock       int64    `json:"end_block"`
	Options        []string `json:"options"`
}

func (in *ProposalInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: empty proposal name", apperr.ErrInvalid)
	}

	if in.EndBlock <= in.StartBlock {
		return fmt.Errorf("%w: end block %d must be after start block %d", apperr.ErrInvalid, in.EndBlock, in.StartBlock)
	}

	if in.VoterFTReward < 0 {
		return fmt.Errorf("%w: negative voter reward", apperr.ErrInvalid)
	}

	if len(in.Options) == 0 {
		return fmt.Errorf("%w: proposal without options", apperr.ErrInvalid)
	}

	for i, o := range in.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("%w: option %d is empty", apperr.ErrInvalid, i)
		}
	}

	return nil
}

func New(dbm *database.DatabaseManager, clk clock.Source, az auth.Authorizer) *Registry {
	return &Registry{
		dbm:    dbm,
		clock:  clk,
		auth:   az,
		logger: slog.Default().With("logger", "voting"),
	}
}

func (r *Registry) Now() int64 {
	return r.clock.Height()
}

// CreateProposal stores the proposal with its options and freezes the FT of
// every identity with positive FT in the same transaction.
func (r *Registry) CreateProposal(ctx context.Context, caller *auth.Caller, in ProposalInput) (*model.Proposal, error) {
	if !auth.AnyOf(r.auth, caller, auth.RoleProposalsAdmin) {
		return nil, fmt.Errorf("%s can't create proposals: %w", caller.GetLogin(), apperr.ErrUnauthorized)
	}

	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &model.Proposal{
		Name:           strings.TrimSpace(in.Name),
		DescriptionRef: in.DescriptionRef,
		VoterFTReward:  in.VoterFTReward,
		StartBlock:     in.StartBlock,
		EndBlock:       in.EndBlock,
		Creator:        caller.GetLogin(),
		Options:        make([]*model.VoteOption, len(in.Options)),
	}

	for i, o := range in.Options {
		p.Options[i] = &model.VoteOption{Description: strings.TrimSpace(o)}
	}

	var voters int

	err := r.dbm.Transaction(ctx, func(tx *database.DatabaseManager) error {
		p.CreatedAt = r.clock.Height()

		if err := tx.Create(p); err != nil {
			return err
		}

		balances, err := ledger.BalancesAt(tx, p.CreatedAt)
		if err != nil {
			return err
		}

		snaps := make([]*model.FTSnapshot, 0, len(balances))

		for _, b := range balances {
			if b.FT > 0 {
				snaps = append(snaps, &model.FTSnapshot{ProposalID: p.ID, Identity: b.Identity, FTAmount: b.FT})
			}
		}

		voters = len(snaps)

		if len(snaps) == 0 {
			return nil
		}

		return tx.Create(&snaps)
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("proposal created", slog.Uint64("id", uint64(p.ID)), slog.String("name", p.Name),
		slog.Int64("start", p.StartBlock), slog.Int64("end", p.EndBlock), slog.Int("voters", voters))

	return p, nil
}

// CastVote records a vote of the caller for one option. A voter may split
// weight over several options while the total stays within the snapshot.
// Only the snapshot of the caller's login counts; FT of attached wallets is
// voted by the wallet identity itself.
func (r *Registry) CastVote(ctx context.Context, caller *auth.Caller, proposalID, optionID uint, weight int64, comment string) (*model.Vote, error) {
	identity := caller.GetLogin()
	if identity == "" {
		return nil, fmt.Errorf("anonymous vote: %w", apperr.ErrUnauthorized)
	}

	if weight <= 0 {
		return nil, fmt.Errorf("%w: weight must be positive", apperr.ErrInvalid)
	}

	var (
		v       *model.Vote
		rewards int64
	)

	err := r.dbm.Transaction(ctx, func(tx *database.DatabaseManager) error {
		p := tx.ProposalQuery().Id(proposalID).One()
		if p == nil {
			return fmt.Errorf("proposal %d: %w", proposalID, apperr.ErrNotFound)
		}

		if p.Option(optionID) == nil {
			return fmt.Errorf("proposal %d option %d: %w", proposalID, optionID, apperr.ErrNotFound)
		}

		h := r.clock.Height()

		if !p.IsOpen(h) {
			return fmt.Errorf("proposal %d is %s at %d: %w", proposalID, p.State(h), h, apperr.ErrNotOpen)
		}

		// the locked snapshot row orders concurrent votes of one identity
		var available int64
		if snap := tx.SnapshotQuery().Proposal(proposalID).Identity(identity).ForUpdate().One(); snap != nil {
			available = snap.FTAmount
		}

		if tx.VoteQuery().Proposal(proposalID).Identity(identity).Option(optionID).Count() > 0 {
			return fmt.Errorf("%s on proposal %d option %d: %w", identity, proposalID, optionID, apperr.ErrDuplicate)
		}

		previous := tx.VoteQuery().Proposal(proposalID).Identity(identity).Count()

		committed, err := tx.VoteQuery().Proposal(proposalID).Identity(identity).SumWeight()
		if err != nil {
			return err
		}

		if committed+weight > available {
			return fmt.Errorf("%s wants %d, committed %d of %d: %w", identity, weight, committed, available, apperr.ErrInsufficientWeight)
		}

		v = &model.Vote{
			Identity:   identity,
			ProposalID: proposalID,
			OptionID:   optionID,
			Weight:     weight,
			Comment:    comment,
			CastAt:     h,
		}

		if err := tx.Create(v); err != nil {
			if database.IsDuplicate(err) {
				return fmt.Errorf("%s on proposal %d option %d: %w", identity, proposalID, optionID, apperr.ErrDuplicate)
			}

			return err
		}

		if previous > 0 || p.VoterFTReward <= 0 {
			return nil
		}

		if tx.RewardQuery().Recipient(identity).Reason(model.RewardVote).Proposal(proposalID).Count() > 0 {
			return nil
		}

		pid := proposalID
		rewards = p.VoterFTReward

		err = tx.Create(&model.RewardGrant{
			Block:      h,
			Recipient:  identity,
			Reason:     model.RewardVote,
			Amount:     p.VoterFTReward,
			ProposalID: &pid,
		})

		if database.IsDuplicate(err) {
			return fmt.Errorf("%s already rewarded for proposal %d: %w", identity, proposalID, apperr.ErrDuplicate)
		}

		return err
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("vote cast", slog.String("identity", identity), slog.Uint64("proposal", uint64(proposalID)),
		slog.Uint64("option", uint64(optionID)), slog.Int64("weight", weight), slog.Int64("reward", rewards))

	return v, nil
}

// Tally sums vote weight per option. Options without votes are reported with
// zero weight; ties are left to the caller.
func (r *Registry) Tally(ctx context.Context, proposalID uint) (*model.TallyDTO, error) {
	dbm := r.dbm.WithContext(ctx)

	p := dbm.ProposalQuery().Id(proposalID).One()
	if p == nil {
		return nil, fmt.Errorf("proposal %d: %w", proposalID, apperr.ErrNotFound)
	}

	totals, err := dbm.VoteQuery().Proposal(proposalID).TotalsByOption()
	if err != nil {
		return nil, err
	}

	byOption := make(map[uint]*database.OptionTotal, len(totals))
	for _, t := range totals {
		byOption[t.OptionID] = t
	}

	res := &model.TallyDTO{
		ProposalID: p.ID,
		State:      p.State(r.clock.Height()),
		Options:    make([]*model.OptionTally, len(p.Options)),
	}

	for i, o := range p.Options {
		ot := &model.OptionTally{OptionID: o.ID, Description: o.Description}

		if t, ok := byOption[o.ID]; ok {
			ot.Weight = t.Weight
			ot.Voters = t.Voters
		}

		res.Total += ot.Weight
		res.Options[i] = ot
	}

	return res, nil
}

func (r *Registry) Proposal(ctx context.Context, id uint) (*model.Proposal, error) {
	p := r.dbm.WithContext(ctx).ProposalQuery().Id(id).One()
	if p == nil {
		return nil, fmt.Errorf("proposal %d: %w", id, apperr.ErrNotFound)
	}

	return p, nil
}

func (r *Registry) Proposals(ctx context.Context, limit, offset int) []*model.Proposal {
	q := r.dbm.WithContext(ctx).ProposalQuery().Offset(offset)

	if limit > 0 {
		q = q.Limit(limit)
	}

	return q.Get()
}

// Snapshot returns the frozen FT of identity for the proposal, 0 when the
// identity had no FT at creation.
func (r *Registry) Snapshot(ctx context.Context, proposalID uint, identity string) (int64, error) {
	dbm := r.dbm.WithContext(ctx)

	if dbm.ProposalQuery().Id(proposalID).One() == nil {
		return 0, fmt.Errorf("proposal %d: %w", proposalID, apperr.ErrNotFound)
	}

	if s := dbm.SnapshotQuery().Proposal(proposalID).Identity(identity).One(); s != nil {
		return s.FTAmount, nil
	}

	return 0, nil
}

func (r *Registry) Snapshots(ctx context.Context, proposalID uint, limit int) []*model.FTSnapshot {
	q := r.dbm.WithContext(ctx).SnapshotQuery().Proposal(proposalID)

	if limit > 0 {
		q = q.Limit(limit)
	}

	return q.Get()
}

func (r *Registry) Votes(ctx context.Context, proposalID uint, identity string) []*model.Vote {
	return r.dbm.WithContext(ctx).VoteQuery().Proposal(proposalID).Identity(identity).Limit(0).Get()
}
