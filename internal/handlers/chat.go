package handlers

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/realtime"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/chat"
)

type ChatHandler struct {
	Chat *chat.Service
	Hub  *realtime.Hub
}

func NewChatHandler(svc *chat.Service, hub *realtime.Hub) *ChatHandler {
	return &ChatHandler{Chat: svc, Hub: hub}
}

func (h *ChatHandler) Routes(r fiber.Router, auth fiber.Handler) {
	g := r.Group("/chat", auth)
	g.Post("/conversations", h.CreateOrGetConversation)
	g.Get("/conversations", h.GetConversations)
	g.Get("/conversations/:id/messages", h.GetMessages)
	g.Post("/conversations/:id/messages", h.SendMessage)
	g.Post("/conversations/:id/read", h.MarkAsRead)
	g.Get("/unread", h.GetUnreadTotal)
}

// WebSocketRoutes mounts /ws/chat. The socket is authenticated with the same
// token as the REST API; browsers pass it as the cookie or ?token=.
func (h *ChatHandler) WebSocketRoutes(app fiber.Router, auth fiber.Handler) {
	app.Use("/ws", auth, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(h.WebSocketHandler))
}

type conversationReq struct {
	UserID uuid.UUID `json:"user_id"`
}

func (h *ChatHandler) CreateOrGetConversation(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req conversationReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Field("user_id", "Invalid user id")
	}
	conv, created, err := h.Chat.Open(c.UserContext(), uid, req.UserID)
	if err != nil {
		return err
	}
	if created {
		return ok(c, fiber.StatusCreated, "Conversation started", conv)
	}
	return ok(c, fiber.StatusOK, "OK", conv)
}

func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	list, err := h.Chat.Conversations(c.UserContext(), uid)
	if err != nil {
		return err
	}
	for _, p := range list {
		if p.Other != nil {
			p.Other.Online = h.Hub.Online(p.Other.ID)
		}
	}
	return c.JSON(fiber.Map{"success": true, "data": list})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	msgs, err := h.Chat.Messages(c.UserContext(), uid, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": msgs})
}

// SendMessage takes {"content"} as JSON, or multipart "content" plus an
// optional "file".
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var (
		content string
		file    *multipart.FileHeader
	)
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		content = c.FormValue("content")
		if fh, err := c.FormFile("file"); err == nil {
			file = fh
		}
	} else {
		var req struct {
			Content string `json:"content"`
		}
		if err := c.BodyParser(&req); err != nil {
			return apperr.Field("body", "Invalid request body")
		}
		content = req.Content
	}

	msg, err := h.Chat.Send(c.UserContext(), uid, id, content, file)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Message sent", msg)
}

func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	n, err := h.Chat.MarkRead(c.UserContext(), uid, id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Messages marked as read", fiber.Map{"updated": n})
}

func (h *ChatHandler) GetUnreadTotal(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	n, err := h.Chat.UnreadTotal(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"unread": n}})
}

func (h *ChatHandler) WebSocketHandler(c *websocket.Conn) {
	uid, _ := c.Locals("userId").(uuid.UUID)
	if uid == uuid.Nil {
		_ = c.Close()
		return
	}
	log.Debugf("websocket: user %s connected", uid)
	h.Hub.Serve(realtime.NewClient(uid, realtime.NewWebSocketConn(c)))
	log.Debugf("websocket: user %s disconnected", uid)
}
