package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/earnings"
)

type SellerDashboardHandler struct {
	Earnings *earnings.Service
}

func NewSellerDashboardHandler(svc *earnings.Service) *SellerDashboardHandler {
	return &SellerDashboardHandler{Earnings: svc}
}

// Routes guards each route on its own; /seller is shared with the public
// profile endpoints.
func (h *SellerDashboardHandler) Routes(r fiber.Router, auth, sellerOnly fiber.Handler) {
	g := r.Group("/seller")
	g.Get("/dashboard", auth, sellerOnly, h.GetDashboardStats)
	g.Get("/earnings", auth, sellerOnly, h.GetEarnings)
	g.Post("/earnings/withdraw", auth, sellerOnly, h.Withdraw)
}

func (h *SellerDashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	d, err := h.Earnings.Dashboard(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": d})
}

func (h *SellerDashboardHandler) GetEarnings(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	d, err := h.Earnings.Dashboard(ctx, uid)
	if err != nil {
		return err
	}
	page, err := h.Earnings.History(ctx, uid, pageParams(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"balance":        d.Balance,
			"total_earnings": d.TotalEarnings,
			"history":        page.Items,
		},
		"meta": page.Meta,
	})
}

type withdrawReq struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
}

func (h *SellerDashboardHandler) Withdraw(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req withdrawReq
	if err := bind(c, &req); err != nil {
		return err
	}
	desc := req.Description
	if desc == "" {
		desc = "Withdrawal"
	}
	entry, err := h.Earnings.Withdraw(c.UserContext(), uid, req.Amount, desc)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Withdrawal recorded", entry)
}
