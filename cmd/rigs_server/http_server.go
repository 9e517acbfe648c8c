package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kdudkov/rigs/internal/apperr"
	"github.com/kdudkov/rigs/pkg/log"
)

type HttpServer struct {
	app *App
	f   *fiber.App
	log *slog.Logger
}

func NewHttp(app *App) *HttpServer {
	srv := &HttpServer{
		app: app,
		log: slog.Default().With("logger", "http"),
	}

	srv.f = fiber.New(fiber.Config{
		EnablePrintRoutes:     false,
		DisableStartupMessage: true,
		BodyLimit:             1024 * 1024,
		ErrorHandler:          srv.errorHandler,
	})

	srv.f.Use(log.NewFiberLogger(&log.LoggerConfig{
		Name:          "api",
		UserGetter:    Username,
		Outcome:       errorOutcome,
		DoMetrics:     true,
		LogErrorsOnly: true,
	}))

	srv.f.Get("/version", getVersionHandler(app))
	srv.f.Get("/metrics", getMetricsHandler())

	srv.f.Use(getBearerAuth(app.tokens), getUserAuth(app.identities), getCallerResolver(app.identities))

	srv.f.Post("/token", getTokenHandler(app))
	srv.f.Get("/ws", getWsUpgrade(), getWsHandler(app))

	srv.f.Get("/rigs/:asset/session", getOpenSessionHandler(app))
	srv.f.Post("/rigs/:asset/train", getTrainHandler(app))
	srv.f.Post("/rigs/:asset/pilot", getPilotHandler(app))
	srv.f.Post("/rigs/:asset/park", getParkHandler(app))
	srv.f.Get("/sessions", getSessionsHandler(app))
	srv.f.Put("/sessions/:id/owner", getSessionOwnerHandler(app))

	srv.f.Get("/ft", getFTHandler(app))
	srv.f.Get("/ft/balances", getBalancesHandler(app))
	srv.f.Get("/grants", getGrantsHandler(app))
	srv.f.Post("/grants", getGrantHandler(app))

	srv.f.Get("/proposals", getProposalsHandler(app))
	srv.f.Post("/proposals", getCreateProposalHandler(app))
	srv.f.Get("/proposals/:id", getProposalHandler(app))
	srv.f.Get("/proposals/:id/votes", getVotesHandler(app))
	srv.f.Post("/proposals/:id/votes", getVoteHandler(app))
	srv.f.Get("/proposals/:id/tally", getTallyHandler(app))
	srv.f.Get("/proposals/:id/snapshot", getSnapshotHandler(app))

	srv.f.Get("/missions", getMissionsHandler(app))
	srv.f.Post("/missions", getCreateMissionHandler(app))
	srv.f.Get("/missions/:id", getMissionHandler(app))
	srv.f.Put("/missions/:id", getEditMissionHandler(app))
	srv.f.Put("/missions/:id/disabled", getMissionGateHandler(app))
	srv.f.Get("/missions/:id/contributions", getContributionsHandler(app))
	srv.f.Post("/missions/:id/contributions", getSubmitContributionHandler(app))
	srv.f.Put("/contributions/:id/review", getReviewHandler(app))

	return srv
}

func (h *HttpServer) Listen(addr string) error {
	h.log.Info("listening http at " + addr)

	return h.f.Listen(addr)
}

func (h *HttpServer) Shutdown(timeout time.Duration) error {
	return h.f.ShutdownWithTimeout(timeout)
}

// errorOutcome gives the status and label a handler error is answered with.
func errorOutcome(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, "http"
	}

	return apperr.Status(err), apperr.Kind(err)
}

func (h *HttpServer) errorHandler(c *fiber.Ctx, err error) error {
	code, kind := errorOutcome(err)

	if code >= fiber.StatusInternalServerError {
		h.log.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
	}

	return c.Status(code).JSON(fiber.Map{"error": kind, "message": err.Error()})
}

func getVersionHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version": gitRevision,
			"branch":  gitBranch,
			"uid":     app.uid,
			"height":  app.clock.Height(),
		})
	}
}

func getTokenHandler(app *App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := Caller(c)

		tok, err := app.tokens.Issue(caller.Login, caller.Roles.List(), caller.Wallets)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}

		app.identities.SaveLoginInfo(caller.Login)

		return c.JSON(fiber.Map{"token": tok})
	}
}

func paramInt64(c *fiber.Ctx, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s %q", apperr.ErrInvalid, name, c.Params(name))
	}

	return v, nil
}

func paramID(c *fiber.Ctx) (uint, error) {
	v, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: bad id %q", apperr.ErrInvalid, c.Params("id"))
	}

	return uint(v), nil
}

func bodyJSON(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalid, err.Error())
	}

	return nil
}

func queryMulti(c *fiber.Ctx, name string) []string {
	var res []string

	for _, b := range c.Context().QueryArgs().PeekMulti(name) {
		if len(b) > 0 {
			res = append(res, string(b))
		}
	}

	return res
}
