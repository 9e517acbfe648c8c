package main

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/kdudkov/rigs/internal/apperr"
	"github.com/kdudkov/rigs/internal/events"
	"github.com/kdudkov/rigs/internal/sessions"
	"github.com/kdudkov/rigs/pkg/model"
)

type pilotRequest struct {
	Owner string         `json:"owner"`
	Pilot model.PilotRef `json:"pilot"`
}

func getOpenSessionHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		asset, err := paramInt64(c, "asset")
		if err != nil {
			return err
		}

		s := app.sessions.OpenSession(c.UserContext(), asset)
		if s == nil {
			return fmt.Errorf("rig %d has no open session: %w", asset, apperr.ErrNotFound)
		}

		return c.JSON(s.DTO(app.clock.Height()))
	}
}

func getSessionsHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := sessions.Filter{
			Owners: queryMulti(c, "owner"),
			Limit:  c.QueryInt("limit", 100),
			Offset: c.QueryInt("offset", 0),
		}

		if a := c.Query("asset"); a != "" {
			asset := int64(c.QueryInt("asset"))
			f.Asset = &asset
		}

		if o := c.Query("open"); o != "" {
			open := c.QueryBool("open")
			f.Open = &open
		}

		now := app.clock.Height()
		list := app.sessions.Sessions(c.UserContext(), f)
		res := make([]*model.SessionDTO, len(list))

		for i, s := range list {
			res[i] = s.DTO(now)
		}

		return c.JSON(res)
	}
}

func getTrainHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		asset, err := paramInt64(c, "asset")
		if err != nil {
			return err
		}

		var req pilotRequest
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		t, err := app.sessions.TrainRig(c.UserContext(), Caller(c), req.Pilot, asset)
		if err := track("train_rig", err); err != nil {
			return err
		}

		return c.JSON(t)
	}
}

func getPilotHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		asset, err := paramInt64(c, "asset")
		if err != nil {
			return err
		}

		var req pilotRequest
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		s, err := app.sessions.PilotRig(c.UserContext(), Caller(c), req.Owner, asset, req.Pilot)
		if err := track("pilot_rig", err); err != nil {
			return err
		}

		dto := s.DTO(app.clock.Height())
		app.publish(events.SessionOpen, dto)

		return c.Status(fiber.StatusCreated).JSON(dto)
	}
}

func getParkHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		asset, err := paramInt64(c, "asset")
		if err != nil {
			return err
		}

		var req pilotRequest
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		s, err := app.sessions.ParkRig(c.UserContext(), Caller(c), req.Owner, asset)
		if err := track("park_rig", err); err != nil {
			return err
		}

		if s == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}

		dto := s.DTO(app.clock.Height())
		app.publish(events.SessionPark, dto)

		return c.JSON(dto)
	}
}

func getSessionOwnerHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var req pilotRequest
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		s, err := app.sessions.UpdateSessionOwner(c.UserContext(), Caller(c), id, req.Owner)
		if err := track("update_session_owner", err); err != nil {
			return err
		}

		return c.JSON(s.DTO(app.clock.Height()))
	}
}
