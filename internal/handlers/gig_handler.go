package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/catalog"
)

type GigHandler struct {
	Catalog *catalog.Service
}

func NewGigHandler(svc *catalog.Service) *GigHandler {
	return &GigHandler{Catalog: svc}
}

func (h *GigHandler) Routes(r fiber.Router, auth, optionalAuth fiber.Handler) {
	g := r.Group("/gigs")
	g.Get("/", h.ListPublic)
	g.Post("/", auth, h.Create)
	g.Get("/mine", auth, h.ListMine)
	g.Get("/saved", auth, h.ListSaved)
	g.Get("/:id", optionalAuth, middleware.AttachJWTLocals(), h.GetDetail)
	g.Patch("/:id", auth, h.Update)
	g.Put("/:id", auth, h.Update)
	g.Delete("/:id", auth, h.Delete)
	g.Post("/:id/save", auth, h.Save)
	g.Delete("/:id/save", auth, h.Unsave)
	g.Get("/:id/ratings", h.Ratings)
	g.Post("/:id/ratings", auth, h.Rate)
}

// decodeGig accepts JSON or multipart; multipart carries nested JSON fields
// and the uploads.
func decodeGig(c *fiber.Ctx) (catalog.GigPatch, catalog.Media, error) {
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return catalog.GigPatch{}, catalog.Media{}, apperr.Field("body", "Invalid multipart form")
		}
		return catalog.DecodeGigForm(form)
	}
	var p catalog.GigPatch
	if err := c.BodyParser(&p); err != nil {
		return p, catalog.Media{}, apperr.Field("body", "Invalid request body")
	}
	return p, catalog.Media{}, nil
}

func (h *GigHandler) Create(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	p, media, err := decodeGig(c)
	if err != nil {
		return err
	}
	g, err := h.Catalog.CreateGig(c.UserContext(), uid, p.Input(), media)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Gig created", g)
}

func (h *GigHandler) Update(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	p, media, err := decodeGig(c)
	if err != nil {
		return err
	}
	g, err := h.Catalog.UpdateGig(c.UserContext(), uid, id, p, media)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Gig updated", g)
}

func (h *GigHandler) Delete(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteGig(c.UserContext(), uid, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *GigHandler) ListMine(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	gigs, err := h.Catalog.MyGigs(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": gigs})
}

func (h *GigHandler) ListPublic(c *fiber.Ctx) error {
	f := catalog.PublicFilter{
		Category:    strings.TrimSpace(c.Query("category")),
		SubCategory: strings.TrimSpace(c.Query("subcategory")),
		Seller:      strings.TrimSpace(c.Query("seller")),
		Search:      c.Query("search"),
		Ordering:    strings.TrimSpace(c.Query("ordering")),
		Params:      pageParams(c),
	}
	if v := c.Query("is_featured"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return apperr.Field("is_featured", "Must be true or false")
		}
		f.IsFeatured = &b
	}

	page, err := h.Catalog.PublicGigs(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page.Items,
		"meta":    page.Meta,
	})
}

func (h *GigHandler) GetDetail(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	g, err := h.Catalog.GigDetail(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": g})
}

func (h *GigHandler) Save(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	sg, err := h.Catalog.SaveGig(c.UserContext(), uid, id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Gig saved", sg)
}

func (h *GigHandler) Unsave(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.UnsaveGig(c.UserContext(), uid, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *GigHandler) ListSaved(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	saved, err := h.Catalog.SavedGigs(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": saved})
}

type rateReq struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=2000"`
}

func (h *GigHandler) Rate(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	var req rateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := h.Catalog.RateGig(c.UserContext(), uid, id, req.Rating, req.Review)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Thanks for your rating", r)
}

func (h *GigHandler) Ratings(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}
	page, err := h.Catalog.GigRatings(c.UserContext(), id, pageParams(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page.Items,
		"stats":   page.Stats,
		"meta":    page.Meta,
	})
}
