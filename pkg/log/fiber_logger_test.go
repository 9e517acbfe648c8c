package log

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errLowWeight = errors.New("insufficient weight")

func testOutcome(err error) (int, string) {
	if errors.Is(err, errLowWeight) {
		return fiber.StatusUnprocessableEntity, "insufficient_weight"
	}

	return fiberOutcome(err)
}

func count(api, route, method, code, outcome string) float64 {
	return testutil.ToFloat64(httpRequestsCount.With(prometheus.Labels{
		"api": api, "route": route, "method": method, "code": code, "outcome": outcome,
	}))
}

func TestFiberLoggerOutcome(t *testing.T) {
	f := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code, kind := testOutcome(err)
			return c.Status(code).SendString(kind)
		},
	})

	f.Use(NewFiberLogger(&LoggerConfig{Name: "test", Outcome: testOutcome, DoMetrics: true, LogErrorsOnly: true}))

	f.Post("/proposals/:id/votes", func(c *fiber.Ctx) error {
		if c.Params("id") == "1" {
			return c.SendStatus(fiber.StatusCreated)
		}

		return errLowWeight
	})

	res, err := f.Test(httptest.NewRequest(fiber.MethodPost, "/proposals/1/votes", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, res.StatusCode)

	for i := 0; i < 2; i++ {
		res, err = f.Test(httptest.NewRequest(fiber.MethodPost, "/proposals/2/votes", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnprocessableEntity, res.StatusCode)
	}

	res, err = f.Test(httptest.NewRequest(fiber.MethodGet, "/nowhere", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)

	assert.Equal(t, float64(1), count("test", "/proposals/:id/votes", "POST", "201", "ok"))
	assert.Equal(t, float64(2), count("test", "/proposals/:id/votes", "POST", "422", "insufficient_weight"))
}

func TestFiberOutcome(t *testing.T) {
	code, kind := fiberOutcome(nil)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", kind)

	code, kind = fiberOutcome(fiber.ErrForbidden)
	assert.Equal(t, fiber.StatusForbidden, code)
	assert.Equal(t, "http", kind)

	code, kind = fiberOutcome(errors.New("boom"))
	assert.Equal(t, fiber.StatusInternalServerError, code)
	assert.Equal(t, "internal", kind)
}
