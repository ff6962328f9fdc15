package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/orders"
)

type OrderHandler struct {
	Orders *orders.Service
}

func NewOrderHandler(svc *orders.Service) *OrderHandler {
	return &OrderHandler{Orders: svc}
}

func (h *OrderHandler) Routes(r fiber.Router, auth fiber.Handler) {
	g := r.Group("/orders", auth)
	g.Post("/", h.Create)
	g.Get("/", h.List)
	g.Get("/:id", h.Get)
	g.Patch("/:id/status", h.UpdateStatus)
	g.Post("/:id/cancel", h.Cancel)
	g.Get("/:id/cancellations", h.Cancellations)
	g.Post("/:id/milestones", h.AddMilestone)
	g.Get("/:id/milestones", h.Milestones)
	g.Patch("/:id/milestones/:mid", h.ToggleMilestone)
	g.Post("/:id/attachments", h.AddAttachment)
	g.Get("/:id/attachments", h.Attachments)
	g.Post("/:id/rating", h.Rate)
}

type createOrderReq struct {
	GigID       uint   `json:"gig_id" validate:"required"`
	PackageID   uint   `json:"package_id" validate:"required"`
	Description string `json:"description" validate:"max=5000"`
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req createOrderReq
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.Orders.Create(c.UserContext(), uid, orders.CreateInput{
		GigID:       req.GigID,
		PackageID:   req.PackageID,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Order placed", o)
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	page, err := h.Orders.List(c.UserContext(), uid, orders.ListFilter{
		As:     strings.ToLower(c.Query("as")),
		Status: strings.ToLower(c.Query("status")),
		Params: pageParams(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page.Items,
		"meta":    page.Meta,
	})
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Orders.Get(c.UserContext(), uid, id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "OK", o)
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	o, err := h.Orders.Transition(c.UserContext(), uid, id, models.OrderStatus(strings.ToLower(req.Status)))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Order is now "+string(o.Status), o)
}

type cancelReq struct {
	Reason    string `json:"reason" validate:"required"`
	IsDispute bool   `json:"is_dispute"`
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req cancelReq
	if err := bind(c, &req); err != nil {
		return err
	}
	cn, err := h.Orders.Cancel(c.UserContext(), uid, id, orders.CancelInput{
		Reason:    req.Reason,
		IsDispute: req.IsDispute,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Order cancelled", cn)
}

func (h *OrderHandler) Cancellations(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.Orders.Cancellations(c.UserContext(), uid, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rows})
}

type milestoneReq struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"` // 2026-01-05 or RFC 3339
}

func (h *OrderHandler) AddMilestone(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req milestoneReq
	if err := bind(c, &req); err != nil {
		return err
	}
	in := orders.MilestoneInput{Title: req.Title, Description: req.Description}
	if d := strings.TrimSpace(req.DueDate); d != "" {
		due, err := parseDate(d)
		if err != nil {
			return apperr.Field("due_date", "Use YYYY-MM-DD or an RFC 3339 timestamp")
		}
		in.DueDate = &due
	}
	m, err := h.Orders.AddMilestone(c.UserContext(), uid, id, in)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Milestone added", m)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return now.New(time.Now().UTC()).Parse(s)
}

func (h *OrderHandler) Milestones(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.Orders.Milestones(c.UserContext(), uid, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rows})
}

type toggleMilestoneReq struct {
	IsCompleted *bool `json:"is_completed" validate:"required"`
}

func (h *OrderHandler) ToggleMilestone(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	mid, err := paramUint(c, "mid")
	if err != nil {
		return err
	}
	var req toggleMilestoneReq
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.Orders.SetMilestoneCompleted(c.UserContext(), uid, id, mid, *req.IsCompleted)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Milestone updated", m)
}

func (h *OrderHandler) AddAttachment(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Field("file", "File is required")
	}
	a, err := h.Orders.AddAttachment(c.UserContext(), uid, id, fh)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "File uploaded", a)
}

func (h *OrderHandler) Attachments(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	rows, err := h.Orders.Attachments(c.UserContext(), uid, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rows})
}

func (h *OrderHandler) Rate(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	var req rateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.Orders.Rate(c.UserContext(), uid, id, req.Rating, req.Review)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Thanks for your rating", r)
}
