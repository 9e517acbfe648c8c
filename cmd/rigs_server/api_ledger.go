package main

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kdudkov/rigs/pkg/model"
)

type grantRequest struct {
	Recipient string             `json:"recipient"`
	Amount    int64              `json:"amount"`
	Reason    model.RewardReason `json:"reason"`
}

// getFTHandler sums FT of the given identities, or of the caller and its
// wallets. With ?at= it reports FT as of that height.
func getFTHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ids := queryMulti(c, "identity")
		if len(ids) == 0 {
			ids = Caller(c).Identities()
		}

		h := int64(c.QueryInt("at", int(app.clock.Height())))

		ft, err := app.ledger.FlightTimeAt(c.UserContext(), h, ids...)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{"identities": ids, "height": h, "ft": ft})
	}
}

func getBalancesHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := app.ledger.Balances(c.UserContext())
		if err != nil {
			return err
		}

		return c.JSON(b)
	}
}

func getGrantsHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list := app.ledger.Grants(c.UserContext(), c.QueryInt("limit", 100), queryMulti(c, "recipient")...)
		res := make([]*model.RewardGrantDTO, len(list))

		for i, g := range list {
			res[i] = g.DTO()
		}

		return c.JSON(res)
	}
}

func getGrantHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req grantRequest
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		g, err := app.ledger.Grant(c.UserContext(), Caller(c), req.Recipient, req.Amount, req.Reason)
		if err := track("grant", err); err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(g.DTO())
	}
}
