package api

import (
	"errors"
	"strings"

	domainbug "github.com/example/bugtracker-chat/domain/bug"
	domainchat "github.com/example/bugtracker-chat/domain/chat"
	"github.com/example/bugtracker-chat/modules/bug"
	"github.com/example/bugtracker-chat/modules/chat"
	"github.com/gofiber/fiber/v2"
)

func (m *APIModule) registerRoutes(app *fiber.App) {
	app.Get("/health", m.handleHealth)

	app.Use("/chat", m.upgradeGuard)
	app.Get("/chat", m.websocketHandler())

	api := app.Group("/api")
	if m.limiter != nil {
		api.Use(m.limiter)
	}

	bugs := api.Group("/bugs")
	bugs.Get("/", m.handleListBugs)
	bugs.Post("/", m.handleCreateBug)
	bugs.Get("/:id", m.handleGetBug)
	bugs.Put("/:id", m.handleUpdateBug)
	bugs.Delete("/:id", m.handleDeleteBug)

	v1 := api.Group("/v1")
	v1.Get("/rooms", m.handleListRooms)
	v1.Get("/rooms/:room/history", m.handleRoomHistory)
	v1.Get("/chat/stats", m.handleChatStats)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Route not found")
	})
}

func (m *APIModule) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "Server is healthy"})
}

// bugError maps bug port errors onto HTTP errors.
func bugError(err error) error {
	switch {
	case errors.Is(err, domainbug.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Bug not found")
	case errors.Is(err, domainbug.ErrInvalidBug):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func (m *APIModule) handleListBugs(c *fiber.Ctx) error {
	status := domainbug.Status(strings.TrimSpace(c.Query("status")))
	resp, err := m.bugs.List(c.UserContext(), status)
	if err != nil {
		return bugError(err)
	}
	return c.JSON(resp)
}

func (m *APIModule) handleCreateBug(c *fiber.Ctx) error {
	var req bug.CreateBugRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	created, err := m.bugs.Create(c.UserContext(), req)
	if err != nil {
		return bugError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (m *APIModule) handleGetBug(c *fiber.Ctx) error {
	found, err := m.bugs.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return bugError(err)
	}
	return c.JSON(found)
}

func (m *APIModule) handleUpdateBug(c *fiber.Ctx) error {
	var req bug.UpdateBugRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.ID = c.Params("id")

	updated, err := m.bugs.Update(c.UserContext(), req)
	if err != nil {
		return bugError(err)
	}
	return c.JSON(updated)
}

func (m *APIModule) handleDeleteBug(c *fiber.Ctx) error {
	if err := m.bugs.Delete(c.UserContext(), c.Params("id")); err != nil {
		return bugError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (m *APIModule) handleListRooms(c *fiber.Ctx) error {
	rooms, err := m.chat.Rooms(c.UserContext())
	if err != nil {
		return err
	}
	if rooms == nil {
		rooms = []domainchat.RoomSummary{}
	}
	for i := range rooms {
		rooms[i].Members = m.hub.RoomClientCount(rooms[i].Name)
	}
	return c.JSON(RoomListResponse{Rooms: rooms})
}

func (m *APIModule) handleRoomHistory(c *fiber.Ctx) error {
	room := strings.TrimSpace(c.Params("room"))
	if room == "" {
		return fiber.NewError(fiber.StatusBadRequest, chat.ErrRoomNameEmpty.Error())
	}
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}

	messages, err := m.chat.History(c.UserContext(), room, limit)
	if err != nil {
		return err
	}
	return c.JSON(HistoryResponse{Room: room, Messages: messages})
}

func (m *APIModule) handleChatStats(c *fiber.Ctx) error {
	stats, err := m.chat.Stats(c.UserContext())
	if err != nil {
		return err
	}
	summary, err := m.activity.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(ChatStatsResponse{
		ConnectedClients: m.hub.ClientCount(),
		Hub:              stats,
		Activity:         summary,
	})
}
