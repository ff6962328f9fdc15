package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/catalog"
)

type CategoryHandler struct {
	Catalog *catalog.Service
}

func NewCategoryHandler(svc *catalog.Service) *CategoryHandler {
	return &CategoryHandler{Catalog: svc}
}

func (h *CategoryHandler) Routes(r fiber.Router, auth, staff fiber.Handler) {
	g := r.Group("/categories")
	g.Get("/", h.GetCategories)
	g.Get("/:slug/subcategories", h.GetSubCategories)
	g.Post("/", auth, staff, h.Create)
}

func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	cats, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": cats})
}

func (h *CategoryHandler) GetSubCategories(c *fiber.Ctx) error {
	subs, err := h.Catalog.SubCategories(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": subs})
}

type categoryReq struct {
	Name          string   `json:"name" validate:"required,max=100"`
	Description   string   `json:"description"`
	SubCategories []string `json:"subcategories" validate:"dive,required,max=100"`
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req categoryReq
	if err := bind(c, &req); err != nil {
		return err
	}
	cat, err := h.Catalog.CreateCategory(c.UserContext(), catalog.CategoryInput{
		Name:          req.Name,
		Description:   req.Description,
		SubCategories: req.SubCategories,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Category created", cat)
}
