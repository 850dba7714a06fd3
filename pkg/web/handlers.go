package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-alan/pkg/dialog"
	"github.com/teslashibe/go-alan/pkg/hub"
)

const snapshotTimeout = 2 * time.Second

var mediaActions = map[string]dialog.Action{
	"play":     dialog.ActionPlay,
	"stop":     dialog.ActionStop,
	"next":     dialog.ActionNext,
	"previous": dialog.ActionPrevious,
	"close":    dialog.ActionClose,
}

var stopwatchActions = map[string]dialog.Action{
	"start": dialog.ActionStopwatchStart,
	"stop":  dialog.ActionStopwatchStop,
	"reset": dialog.ActionStopwatchReset,
}

func (s *Server) getController() Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controller
}

func errNotReady(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": "assistant not running",
	})
}

// handleStatus returns the dashboard status and the dialog session.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := fiber.Map{"status": s.Status()}

	if ctrl := s.getController(); ctrl != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), snapshotTimeout)
		defer cancel()
		if session, err := ctrl.Snapshot(ctx); err == nil {
			resp["session"] = session
		} else {
			s.logger.Warn("session snapshot failed", "error", err)
		}
	}
	return c.JSON(resp)
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	s.conversationMu.RLock()
	defer s.conversationMu.RUnlock()
	return c.JSON(s.conversation)
}

// handleRecipeExit leaves the recipe view.
func (s *Server) handleRecipeExit(c *fiber.Ctx) error {
	ctrl := s.getController()
	if ctrl == nil {
		return errNotReady(c)
	}
	return c.JSON(fiber.Map{"exited": ctrl.ExitRecipe()})
}

func (s *Server) handleMediaAction(c *fiber.Ctx) error {
	action, ok := mediaActions[c.Params("action")]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown media action"})
	}
	return s.dispatch(c, action, 0)
}

// VolumeRequest is the body of the volume slider action.
type VolumeRequest struct {
	Volume int `json:"volume"`
}

func (s *Server) handleMediaVolume(c *fiber.Ctx) error {
	var req VolumeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return s.dispatch(c, dialog.ActionVolume, req.Volume)
}

func (s *Server) handleStopwatchAction(c *fiber.Ctx) error {
	action, ok := stopwatchActions[c.Params("action")]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown stopwatch action"})
	}
	return s.dispatch(c, action, 0)
}

func (s *Server) dispatch(c *fiber.Ctx, action dialog.Action, value int) error {
	ctrl := s.getController()
	if ctrl == nil {
		return errNotReady(c)
	}
	ctrl.UIAction(action, value)
	return c.JSON(fiber.Map{"action": action})
}

// handleCalendarAuth redirects to the calendar consent page.
func (s *Server) handleCalendarAuth(c *fiber.Ctx) error {
	s.mu.Lock()
	cal := s.calendar
	if cal != nil {
		s.oauthState = uuid.NewString()
	}
	state := s.oauthState
	s.mu.Unlock()

	if cal == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "calendar not configured"})
	}
	return c.Redirect(cal.AuthURL(state), fiber.StatusTemporaryRedirect)
}

// handleCalendarCallback completes the OAuth flow.
func (s *Server) handleCalendarCallback(c *fiber.Ctx) error {
	s.mu.Lock()
	cal := s.calendar
	expected := s.oauthState
	s.oauthState = ""
	s.mu.Unlock()

	if cal == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "calendar not configured"})
	}
	if expected == "" || c.Query("state") != expected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid state"})
	}
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing code"})
	}

	if err := cal.HandleCallback(c.UserContext(), code); err != nil {
		s.logger.Error("calendar authorization failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	s.logger.Info("calendar connected")
	return c.SendString("Calendar connected. You can close this window.")
}

// handleStatusWS streams status updates. The current status is replayed
// on connect.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	hub.NewClient(s.statusHub, c).Run()
}
