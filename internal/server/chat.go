package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/accountplan/internal/collector"
	"github.com/mohammad-safakhou/accountplan/internal/conversation"
	"github.com/mohammad-safakhou/accountplan/internal/helpers"
)

// DefaultResetSession is reset when /reset names no session.
const DefaultResetSession = "default-session"

type ChatHandler struct {
	Conv *conversation.Controller
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat", h.chat)
	g.POST("/edit-section", h.editSection)
	g.POST("/dig-deeper", h.digDeeper)
	g.POST("/reset", h.reset)
	g.POST("/reset-session", h.reset)
}

type attachment struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Date  string `json:"date"`
}

type chatRequest struct {
	Message     string       `json:"message"`
	SessionID   string       `json:"session_id"`
	Attachments []attachment `json:"attachments"`
}

// bind decodes the body; malformed input is reported as a 500 like every
// other failure on these routes.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("invalid request: %v", err)
	}
	return nil
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req chatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	msg := conversation.Message{Text: req.Message, SessionID: req.SessionID}
	for i, a := range req.Attachments {
		url := a.URL
		if url == "" {
			url = fmt.Sprintf("attachment-%d", i+1)
		}
		msg.Attachments = append(msg.Attachments, collector.LocalSource{
			URL:   url,
			Title: a.Title,
			Text:  helpers.PlainText(a.Text),
			Date:  a.Date,
		})
	}
	res, err := h.Conv.Handle(c.Request().Context(), msg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ChatHandler) editSection(c echo.Context) error {
	var req struct {
		SessionID  string `json:"session_id"`
		Section    string `json:"section"`
		NewContent string `json:"new_content"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.Conv.EditSection(c.Request().Context(), req.SessionID, req.Section, req.NewContent)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ChatHandler) digDeeper(c echo.Context) error {
	var req struct {
		SessionID string `json:"session_id"`
		Topic     string `json:"topic"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.Conv.DigDeeper(c.Request().Context(), req.SessionID, req.Topic)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// reset accepts the session id as a query parameter or in a JSON body.
func (h *ChatHandler) reset(c echo.Context) error {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	id := c.QueryParam("session_id")
	if id == "" {
		id = req.SessionID
	}
	if id == "" {
		id = DefaultResetSession
	}
	if err := h.Conv.Reset(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"reply": "Session cleared. Start fresh!"})
}
