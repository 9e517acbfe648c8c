package main

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kdudkov/rigs/internal/events"
	"github.com/kdudkov/rigs/internal/missions"
	"github.com/kdudkov/rigs/pkg/model"
)

type gateRequest struct {
	Disabled bool `json:"disabled"`
}

type contributionRequest struct {
	Data string `json:"data"`
}

type reviewRequest struct {
	Accepted   bool   `json:"accepted"`
	Motivation string `json:"motivation"`
}

func getMissionsHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list := app.missions.Missions(c.UserContext())
		res := make([]*model.MissionDTO, len(list))

		for i, m := range list {
			res[i] = m.DTO()
		}

		return c.JSON(res)
	}
}

func getMissionHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		m, err := app.missions.Mission(c.UserContext(), id)
		if err != nil {
			return err
		}

		return c.JSON(m.DTO())
	}
}

func getCreateMissionHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req missions.MissionInput
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		m, err := app.missions.CreateMission(c.UserContext(), Caller(c), req)
		if err := track("create_mission", err); err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(m.DTO())
	}
}

func getEditMissionHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var req missions.MissionInput
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		m, err := app.missions.EditMission(c.UserContext(), Caller(c), id, req)
		if err := track("edit_mission", err); err != nil {
			return err
		}

		return c.JSON(m.DTO())
	}
}

func getMissionGateHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var req gateRequest
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		m, err := app.missions.SetContributionsDisabled(c.UserContext(), Caller(c), id, req.Disabled)
		if err := track("set_contributions_disabled", err); err != nil {
			return err
		}

		return c.JSON(m.DTO())
	}
}

func getContributionsHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		list := app.missions.Contributions(c.UserContext(), missions.Filter{
			MissionID:   id,
			Contributor: c.Query("contributor"),
			Status:      model.ContributionStatus(c.Query("status")),
			Limit:       c.QueryInt("limit", 100),
			Offset:      c.QueryInt("offset", 0),
		})

		res := make([]*model.ContributionDTO, len(list))

		for i, m := range list {
			res[i] = m.DTO()
		}

		return c.JSON(res)
	}
}

func getSubmitContributionHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var req contributionRequest
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		mc, err := app.missions.SubmitMissionContribution(c.UserContext(), Caller(c), id, req.Data)
		if err := track("submit_contribution", err); err != nil {
			return err
		}

		dto := mc.DTO()
		app.publish(events.Contribution, dto)

		return c.Status(fiber.StatusCreated).JSON(dto)
	}
}

func getReviewHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var req reviewRequest
		if err := bodyJSON(c, &req); err != nil {
			return err
		}

		mc, err := app.missions.ReviewContribution(c.UserContext(), Caller(c), id, req.Accepted, req.Motivation)
		if err := track("review_contribution", err); err != nil {
			return err
		}

		dto := mc.DTO()
		app.publish(events.Review, dto)

		return c.JSON(dto)
	}
}
