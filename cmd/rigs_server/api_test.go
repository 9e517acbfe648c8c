package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdudkov/rigs/internal/auth"
	"github.com/kdudkov/rigs/internal/clock"
	"github.com/kdudkov/rigs/internal/config"
	"github.com/kdudkov/rigs/pkg/model"
)

const parentLogin = "rigs-contract"

type TestApp struct {
	*App
	srv *HttpServer
	clk *clock.Manual
}

func identity(login string, disabled bool, roles ...string) *model.Identity {
	u := &model.Identity{Login: login, Roles: roles, Disabled: disabled}
	if err := u.SetPassword(login + "-pw"); err != nil {
		panic(err)
	}

	return u
}

func NewTestApp(t *testing.T) *TestApp {
	t.Helper()

	cfg := config.NewAppConfig()
	cfg.Set("db.dsn", ":memory:")
	cfg.Set("identities.source", "db")
	cfg.Set("identities.file", "")
	cfg.Set("parent", parentLogin)
	cfg.Set("clock", "manual")
	cfg.Set("clock_start", 100)
	cfg.Set("jwt.secret", "test-secret")

	app, err := NewApp(cfg)
	require.NoError(t, err)
	require.NoError(t, app.Start())
	t.Cleanup(app.Stop)

	for _, u := range []*model.Identity{
		identity(parentLogin, false),
		identity("root", false, auth.RoleDefaultAdmin),
		identity("rev", false, auth.RoleReviewer),
		identity("alice", false),
		identity("off", true),
	} {
		require.NoError(t, app.dbm.Save(u))
	}

	clk, ok := app.clock.(*clock.Manual)
	require.True(t, ok)

	return &TestApp{App: app, srv: NewHttp(app), clk: clk}
}

func (app *TestApp) Req(method, url, login string, obj any) *http.Response {
	var body io.Reader

	if obj != nil {
		d, err := json.Marshal(obj)
		if err != nil {
			panic(err)
		}

		body = bytes.NewReader(d)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		panic(err)
	}

	if obj != nil {
		req.Header.Add(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if login != "" {
		req.SetBasicAuth(login, login+"-pw")
	}

	resp, err := app.srv.f.Test(req, 5000)
	if err != nil {
		panic(err)
	}

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var res T

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))

	return res
}

func TestAuth(t *testing.T) {
	app := NewTestApp(t)

	resp := app.Req("GET", "/version", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	for _, d := range []struct {
		login string
		code  int
	}{
		{"", fiber.StatusUnauthorized},
		{"ghost", fiber.StatusUnauthorized},
		{"off", fiber.StatusUnauthorized},
		{"alice", fiber.StatusOK},
	} {
		t.Run("ft_as_"+d.login, func(t *testing.T) {
			resp := app.Req("GET", "/ft", d.login, nil)
			require.Equal(t, d.code, resp.StatusCode)
		})
	}

	req, _ := http.NewRequest("GET", "/ft", nil)
	req.SetBasicAuth("alice", "wrong")
	resp, err := app.srv.f.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	app := NewTestApp(t)

	resp := app.Req("POST", "/token", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	tok := decode[map[string]string](t, resp)["token"]
	require.NotEmpty(t, tok)

	req, _ := http.NewRequest("GET", "/ft", nil)
	req.Header.Add("Authorization", "Bearer "+tok)
	resp, err := app.srv.f.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req, _ = http.NewRequest("GET", "/ft", nil)
	req.Header.Add("Authorization", "Bearer "+tok+"x")
	resp, err = app.srv.f.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSessionFlow(t *testing.T) {
	app := NewTestApp(t)

	pilot := fiber.Map{"owner": "alice", "pilot": fiber.Map{"kind": "internal"}}

	resp := app.Req("POST", "/rigs/1/pilot", "alice", pilot)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "unauthorized", decode[map[string]string](t, resp)["error"])

	resp = app.Req("POST", "/rigs/1/pilot", parentLogin, pilot)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = app.Req("POST", "/rigs/1/pilot", parentLogin, fiber.Map{"owner": "bob", "pilot": fiber.Map{"kind": "internal"}})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "session_conflict", decode[map[string]string](t, resp)["error"])

	resp = app.Req("POST", "/rigs/x/pilot", parentLogin, pilot)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	app.clk.Advance(10)

	resp = app.Req("GET", "/ft", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(10), decode[map[string]any](t, resp)["ft"])

	resp = app.Req("GET", "/rigs/1/session", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = app.Req("POST", "/rigs/1/park", parentLogin, fiber.Map{"owner": "alice"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = app.Req("POST", "/rigs/1/park", parentLogin, fiber.Map{"owner": "alice"})
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = app.Req("GET", "/rigs/1/session", "alice", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = app.Req("GET", "/sessions?owner=alice", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]map[string]any](t, resp), 1)
}

func TestVotingFlow(t *testing.T) {
	app := NewTestApp(t)

	resp := app.Req("POST", "/grants", "alice", fiber.Map{"recipient": "alice", "amount": 10})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = app.Req("POST", "/grants", "root", fiber.Map{"recipient": "alice", "amount": 10})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = app.Req("POST", "/proposals", "root", fiber.Map{
		"name":            "paint",
		"start_block":     100,
		"end_block":       200,
		"voter_ft_reward": 1,
		"options":         []string{"red", "blue"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	p := decode[model.ProposalDTO](t, resp)
	require.Len(t, p.Options, 2)
	assert.Equal(t, model.ProposalOpen, p.State)

	url := fmt.Sprintf("/proposals/%d", p.ID)

	resp = app.Req("GET", url+"/snapshot", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(10), decode[map[string]any](t, resp)["ft"])

	resp = app.Req("POST", url+"/votes", "alice", fiber.Map{"option_id": p.Options[0].ID, "weight": 11})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp = app.Req("POST", url+"/votes", "alice", fiber.Map{"option_id": p.Options[0].ID, "weight": 7})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = app.Req("POST", url+"/votes", "alice", fiber.Map{"option_id": p.Options[0].ID, "weight": 1})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = app.Req("GET", url+"/tally", "rev", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	tally := decode[model.TallyDTO](t, resp)
	assert.Equal(t, int64(7), tally.Total)
	assert.Equal(t, int64(7), tally.Options[0].Weight)
	assert.Zero(t, tally.Options[1].Weight)

	resp = app.Req("GET", "/ft", "alice", nil)
	assert.Equal(t, float64(11), decode[map[string]any](t, resp)["ft"])

	app.clk.Set(200)

	resp = app.Req("POST", url+"/votes", "alice", fiber.Map{"option_id": p.Options[1].ID, "weight": 1})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not_open", decode[map[string]string](t, resp)["error"])

	resp = app.Req("GET", "/proposals/999/tally", "alice", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMissionFlow(t *testing.T) {
	app := NewTestApp(t)

	resp := app.Req("POST", "/missions", "alice", fiber.Map{"name": "survey"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = app.Req("POST", "/missions", "root", fiber.Map{"name": "survey", "reward_ft": 3})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	m := decode[model.MissionDTO](t, resp)
	url := fmt.Sprintf("/missions/%d", m.ID)

	resp = app.Req("PUT", url+"/disabled", "root", fiber.Map{"disabled": true})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = app.Req("POST", url+"/contributions", "alice", fiber.Map{"data": "ipfs://x"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "contributions_disabled", decode[map[string]string](t, resp)["error"])

	resp = app.Req("PUT", url+"/disabled", "root", fiber.Map{"disabled": false})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = app.Req("POST", url+"/contributions", "alice", fiber.Map{"data": "ipfs://x"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	c := decode[model.ContributionDTO](t, resp)
	assert.Equal(t, model.ContributionPending, c.Status)

	review := fmt.Sprintf("/contributions/%d/review", c.ID)

	resp = app.Req("PUT", review, "alice", fiber.Map{"accepted": true})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = app.Req("PUT", review, "rev", fiber.Map{"accepted": true, "motivation": "good"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = app.Req("PUT", review, "root", fiber.Map{"accepted": false})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_reviewed", decode[map[string]string](t, resp)["error"])

	resp = app.Req("GET", url+"/contributions?status=accepted", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.ContributionDTO](t, resp), 1)

	resp = app.Req("GET", "/ft", "alice", nil)
	assert.Equal(t, float64(3), decode[map[string]any](t, resp)["ft"])
}
