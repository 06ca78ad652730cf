package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/practisage/medassist/internal/store"
)

// TodoStore is the slice of the store the todos handlers need.
// *store.Store satisfies it.
type TodoStore interface {
	ListTodos(ctx context.Context) ([]store.Todo, error)
	CreateTodo(ctx context.Context, title string) (store.Todo, error)
	ToggleTodo(ctx context.Context, id int64) (store.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
}

type TodosHandler struct {
	Store TodoStore
}

func (h *TodosHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("/:id/toggle", h.toggle)
	g.DELETE("/:id", h.remove)
}

func (h *TodosHandler) list(c echo.Context) error {
	todos, err := h.Store.ListTodos(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if todos == nil {
		todos = []store.Todo{}
	}
	return c.JSON(http.StatusOK, todos)
}

func (h *TodosHandler) create(c echo.Context) error {
	var req TodoCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title must not be empty")
	}
	todo, err := h.Store.CreateTodo(c.Request().Context(), req.Title)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, todo)
}

func (h *TodosHandler) toggle(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	todo, err := h.Store.ToggleTodo(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, todo)
}

func (h *TodosHandler) remove(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.Store.DeleteTodo(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
