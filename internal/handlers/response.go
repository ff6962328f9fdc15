package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/pagination"
)

func ok(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// statusOf maps an error kind onto the HTTP status of the response.
func statusOf(e *apperr.Error) int {
	switch e.Kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperr.KindPermission:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		if e.Code == apperr.CodeAlreadySeller {
			return fiber.StatusBadRequest
		}
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler is the app-wide fiber.Config.ErrorHandler. Every failure
// leaves as {"success": false, "message", "code", "errors"}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"message": fe.Message,
			"code":    codeOf(fe.Code),
		})
	}

	e := apperr.As(err)
	status := statusOf(e)
	if status == fiber.StatusInternalServerError {
		log.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	}
	resp := fiber.Map{
		"success": false,
		"message": e.Message,
		"code":    e.Code,
	}
	if len(e.Fields) > 0 {
		resp["errors"] = e.Fields
	}
	return c.Status(status).JSON(resp)
}

func codeOf(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return apperr.CodeUnauthorized
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return apperr.CodeNotFound
	case fiber.StatusBadRequest:
		return apperr.CodeValidation
	}
	return "http_" + strconv.Itoa(status)
}

func getAuth(c *fiber.Ctx) (uuid.UUID, error) {
	id := middleware.UserID(c)
	if id == uuid.Nil {
		return uuid.Nil, apperr.ErrUnauthorized
	}
	return id, nil
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Field(name, "Invalid id")
	}
	return id, nil
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	n, err := c.ParamsInt(name)
	if err != nil || n <= 0 {
		return 0, apperr.Field(name, "Invalid id")
	}
	return uint(n), nil
}

func pageParams(c *fiber.Ctx) pagination.Params {
	return pagination.Params{Page: c.QueryInt("page", 1), Limit: c.QueryInt("limit", pagination.DefaultLimit)}
}
