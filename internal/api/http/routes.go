package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/country-explorer/internal/currency"
	"github.com/i474232898/country-explorer/internal/explorer"
	"github.com/i474232898/country-explorer/internal/session"
)

var validate = validator.New()

// longPollTimeout bounds how long an updates request with wait=true blocks.
const longPollTimeout = 25 * time.Second

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, sessions *session.Manager) {
	v1 := app.Group("/api/v1")

	v1.Get("/countries", func(c *fiber.Ctx) error {
		countries, err := sessions.Countries(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to load the country list")
		}
		return c.JSON(countries)
	})

	v1.Post("/sessions", func(c *fiber.Ctx) error {
		s := sessions.Create()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":      s.ID,
			"created": s.Created,
		})
	})

	v1.Delete("/sessions/:id", func(c *fiber.Ctx) error {
		if err := sessions.Close(c.Params("id")); err != nil {
			return sessionError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Post("/sessions/:id/selection", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}

		var req selectionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		epoch, err := s.Select(c.UserContext(), req.toCountry())
		if err != nil {
			return sessionError(err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"epoch": epoch})
	})

	v1.Delete("/sessions/:id/selection", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}
		if err := s.ClosePanel(c.UserContext()); err != nil {
			return sessionError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Post("/sessions/:id/geolocation", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}

		var req geolocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := s.Geolocate(c.UserContext(), *req.Lat, *req.Lon); err != nil {
			return sessionError(err)
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	v1.Get("/sessions/:id/model", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}
		return c.JSON(fiber.Map{
			"status": s.Status(),
			"model":  s.Model(),
		})
	})

	v1.Get("/sessions/:id/overlay", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}
		return c.JSON(s.Overlay())
	})

	v1.Get("/sessions/:id/updates", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}

		after, err := parseUint(c.Query("after"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "after must be a non-negative integer")
		}
		wait := c.QueryBool("wait", false)

		ctx := c.UserContext()
		if wait {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, longPollTimeout)
			defer cancel()
		}

		updates := s.Updates(ctx, after, wait)
		if updates == nil {
			updates = []explorer.Update{}
		}
		return c.JSON(fiber.Map{
			"updates": updates,
			"last":    s.LastSeq(),
		})
	})

	v1.Get("/sessions/:id/convert", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return sessionError(err)
		}

		amount, err := strconv.ParseFloat(c.Query("amount"), 64)
		if err != nil || amount < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "amount must be a non-negative number")
		}

		q, err := s.Convert(amount)
		if err != nil {
			if errors.Is(err, currency.ErrUnavailable) {
				return fiber.NewError(fiber.StatusConflict, "no exchange rate available for the current selection")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "conversion failed")
		}
		return c.JSON(q)
	})
}

// selectionRequest is the body of a country selection.
type selectionRequest struct {
	ISO3    string `json:"iso3" validate:"required,len=3,alpha"`
	ISO2    string `json:"iso2" validate:"omitempty,len=2,alpha"`
	Name    string `json:"name" validate:"max=128"`
	Capital string `json:"capital" validate:"max=128"`
}

func (r selectionRequest) toCountry() explorer.Country {
	return explorer.Country{
		ISO2:        r.ISO2,
		ISO3:        r.ISO3,
		Name:        r.Name,
		CapitalName: r.Capital,
	}
}

// geolocationRequest is the position reported by the browser.
type geolocationRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	case errors.Is(err, explorer.ErrInvalidCountry), errors.Is(err, explorer.ErrInvalidPosition):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, explorer.ErrNoGeocoder):
		return fiber.NewError(fiber.StatusNotImplemented, "geolocation is not configured")
	case errors.Is(err, explorer.ErrStopped):
		return fiber.NewError(fiber.StatusGone, "session is closed")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "request failed")
}
