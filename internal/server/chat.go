package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/practisage/medassist/internal/chat"
)

// Completer is the chat pipeline behind the OpenAI-compatible surface.
// *chat.Service satisfies it.
type Completer interface {
	Complete(ctx context.Context, req chat.ChatCompletionRequest) (*chat.ChatCompletionResponse, error)
	Stream(ctx context.Context, req chat.ChatCompletionRequest) (<-chan chat.ChatCompletionChunk, <-chan error)
}

type ChatHandler struct {
	Service Completer
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat/completions", h.completions)
	g.GET("/models", h.listModels)
	g.GET("/models/:id", h.getModel)
}

func (h *ChatHandler) completions(c echo.Context) error {
	var req chat.ChatCompletionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "messages must not be empty")
	}

	if !req.Stream {
		resp, err := h.Service.Complete(c.Request().Context(), req)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return c.JSON(http.StatusOK, resp)
	}

	ctx := c.Request().Context()
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	chunks, errCh := h.Service.Stream(ctx, req)
	for chunk := range chunks {
		data, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		if _, err := resp.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
	}
	if err := <-errCh; err != nil {
		// headers already sent; the broken stream is all we can signal
		return err
	}
	if _, err := resp.Write([]byte("data: [DONE]\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func (h *ChatHandler) listModels(c echo.Context) error {
	return c.JSON(http.StatusOK, ModelList{Object: "list", Data: chat.Models()})
}

func (h *ChatHandler) getModel(c echo.Context) error {
	m := chat.ModelByID(c.Param("id"))
	if m == nil {
		return echo.NewHTTPError(http.StatusNotFound, "model not found")
	}
	return c.JSON(http.StatusOK, m)
}
