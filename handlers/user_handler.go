package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/Skryldev/userservice/db"
	"github.com/Skryldev/userservice/repo"
	"github.com/Skryldev/userservice/validation"
)

// Generic failure messages. Store error detail is logged, never returned.
const (
	msgCreateFailed = "Failed to create user"
	msgListFailed   = "Failed to get users"
	msgGetFailed    = "Failed to get user by ID"
	msgUpdateFailed = "Failed to update user"
	msgDeleteFailed = "Failed to delete user"
)

// ErrorBody is the single shape of every 4xx/5xx response.
type ErrorBody struct {
	Message string `json:"message"`
}

// UserHandler serves the /users resource.
type UserHandler struct {
	users repo.UserRepository
	log   *slog.Logger
}

func NewUserHandler(users repo.UserRepository, log *slog.Logger) *UserHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{users: users, log: log}
}

// Register binds the five operations under r, which is expected to be the
// /users group.
func (h *UserHandler) Register(r fiber.Router) {
	r.Post("/", h.CreateUser).Name("create_user")
	r.Get("/", h.ListUsers).Name("list_users")
	r.Get("/:id", h.GetUser).Name("get_user")
	r.Put("/:id", h.UpdateUser).Name("update_user")
	r.Delete("/:id", h.DeleteUser).Name("delete_user")
}

func (h *UserHandler) CreateUser(c fiber.Ctx) error {
	params, err := validation.DecodeCreate(c.Body())
	if err != nil {
		return badRequest(c, err)
	}

	u, err := h.users.Insert(c.Context(), params)
	if err != nil {
		return h.storeFailure(c, "create", 0, err, msgCreateFailed)
	}
	return c.JSON(u)
}

func (h *UserHandler) ListUsers(c fiber.Ctx) error {
	users, err := h.users.List(c.Context())
	if err != nil {
		return h.storeFailure(c, "list", 0, err, msgListFailed)
	}
	return c.JSON(users)
}

// GetUser answers 200 with a null body when no user matches, including ids
// that are not integers.
func (h *UserHandler) GetUser(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(nil)
	}

	u, err := h.users.GetByID(c.Context(), id)
	if err != nil {
		if db.IsNotFound(err) {
			return c.JSON(nil)
		}
		return h.storeFailure(c, "get", id, err, msgGetFailed)
	}
	return c.JSON(u)
}

// UpdateUser applies a partial update. An unknown id is a store failure.
func (h *UserHandler) UpdateUser(c fiber.Ctx) error {
	id, ok := parseID(c)

	patch, err := validation.DecodeUpdate(id, c.Body())
	if err != nil {
		return badRequest(c, err)
	}
	if !ok {
		return h.storeFailure(c, "update", 0, db.NotFound("user "+c.Params("id")), msgUpdateFailed)
	}

	u, err := h.users.Update(c.Context(), patch)
	if err != nil {
		return h.storeFailure(c, "update", id, err, msgUpdateFailed)
	}
	return c.JSON(u)
}

// DeleteUser removes a user and echoes the removed record. An unknown id is a
// store failure.
func (h *UserHandler) DeleteUser(c fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return h.storeFailure(c, "delete", 0, db.NotFound("user "+c.Params("id")), msgDeleteFailed)
	}

	u, err := h.users.Delete(c.Context(), id)
	if err != nil {
		return h.storeFailure(c, "delete", id, err, msgDeleteFailed)
	}
	return c.JSON(u)
}

// Pinger is satisfied by *db.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports whether the database answers a ping.
func Healthz(p Pinger, log *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := p.Ping(c.Context()); err != nil {
			log.ErrorContext(c.Context(), "health check failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorBody{Message: "database unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

func parseID(c fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func badRequest(c fiber.Ctx, err error) error {
	var ve *validation.Error
	if !errors.As(err, &ve) {
		return err
	}
	return c.Status(fiber.StatusBadRequest).JSON(ErrorBody{Message: ve.Message})
}

func (h *UserHandler) storeFailure(c fiber.Ctx, op string, id int64, err error, msg string) error {
	attrs := []any{
		slog.String("op", op),
		slog.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
		slog.Any("error", err),
	}
	if id != 0 {
		attrs = append(attrs, slog.Int64("id", id))
	}
	h.log.ErrorContext(c.Context(), "user store call failed", attrs...)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorBody{Message: msg})
}
