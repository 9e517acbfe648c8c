package main

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kdudkov/rigs/internal/events"
	"github.com/kdudkov/rigs/internal/voting"
	"github.com/kdudkov/rigs/pkg/model"
)

type voteRequest struct {
	OptionID uint   `json:"option_id"`
	Weight   int64  `json:"weight"`
	Comment  string `json:"comment"`
}

func getProposalsHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := app.clock.Height()
		list := app.voting.Proposals(c.UserContext(), c.QueryInt("limit", 100), c.QueryInt("offset", 0))
		res := make([]*model.ProposalDTO, len(list))

		for i, p := range list {
			res[i] = p.DTO(now)
		}

		return c.JSON(res)
	}
}

func getCreateProposalHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req voting.ProposalInput
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		p, err := app.voting.CreateProposal(c.UserContext(), Caller(c), req)
		if err := track("create_proposal", err); err != nil {
			return err
		}

		dto := p.DTO(app.clock.Height())
		app.publish(events.Proposal, dto)

		return c.Status(fiber.StatusCreated).JSON(dto)
	}
}

func getProposalHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		p, err := app.voting.Proposal(c.UserContext(), id)
		if err != nil {
			return err
		}

		return c.JSON(p.DTO(app.clock.Height()))
	}
}

func getVotesHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		list := app.voting.Votes(c.UserContext(), id, c.Query("identity", Caller(c).Login))
		res := make([]*model.VoteDTO, len(list))

		for i, v := range list {
			res[i] = v.DTO()
		}

		return c.JSON(res)
	}
}

func getVoteHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var req voteRequest
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		v, err := app.voting.CastVote(c.UserContext(), Caller(c), id, req.OptionID, req.Weight, req.Comment)
		if err := track("cast_vote", err); err != nil {
			return err
		}

		dto := v.DTO()
		app.publish(events.Vote, dto)

		return c.Status(fiber.StatusCreated).JSON(dto)
	}
}

func getTallyHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		t, err := app.voting.Tally(c.UserContext(), id)
		if err != nil {
			return err
		}

		return c.JSON(t)
	}
}

func getSnapshotHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		identity := c.Query("identity", Caller(c).Login)

		ft, err := app.voting.Snapshot(c.UserContext(), id, identity)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{"proposal_id": id, "identity": identity, "ft": ft})
	}
}
