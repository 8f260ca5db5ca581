package api

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/drift/pkg/topic"
	"github.com/papercomputeco/drift/pkg/utils"
)

// ErrorResponse is the JSON payload returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StartResponse is returned when a new conversation is started.
type StartResponse struct {
	ConversationID string `json:"conversation_id"`
}

// LoadResponse reports the readiness of a loaded conversation.
type LoadResponse struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
}

// TrackRequest is the payload for POST /v1/conversations/:id/messages.
type TrackRequest struct {
	Text string `json:"text"`
	Role string `json:"role,omitempty"`
}

// TrackResponse pairs the updated snapshot with the transition the message
// produced, if any.
type TrackResponse struct {
	Snapshot   topic.Snapshot    `json:"snapshot"`
	Transition *topic.Transition `json:"transition,omitempty"`
}

// ResetRequest is the payload for POST /v1/conversations/:id/reset. Full
// erases the conversation entirely; otherwise the transition history is
// kept and only topical state is cleared.
type ResetRequest struct {
	Full bool `json:"full"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "pong"})
}

// handleVersion returns build information.
func (s *Server) handleVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version":   utils.Version,
		"sha":       utils.Sha,
		"buildtime": utils.Buildtime,
	})
}

// handleStartConversation starts a fresh conversation and makes it the
// active one.
func (s *Server) handleStartConversation(c *fiber.Ctx) error {
	id, err := s.lifecycle.StartNew(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to start conversation"})
	}

	return c.Status(fiber.StatusCreated).JSON(StartResponse{ConversationID: id})
}

// handleListConversations returns the ids of every stored conversation.
func (s *Server) handleListConversations(c *fiber.Ctx) error {
	ids, err := s.store.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list conversations"})
	}

	return c.JSON(fiber.Map{
		"count":         len(ids),
		"conversations": ids,
	})
}

// handleLoadConversation binds the lifecycle to an existing conversation id.
// The context warm-up runs in the background, so the response is 202 until
// the manager reports ready.
func (s *Server) handleLoadConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	if err := s.lifecycle.Load(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load conversation"})
	}

	if !s.lifecycle.Ready() {
		return c.Status(fiber.StatusAccepted).JSON(LoadResponse{ConversationID: id, Status: "loading"})
	}

	return c.JSON(LoadResponse{ConversationID: id, Status: "ready"})
}

// handleTrackMessage runs the tracking pipeline for one message and returns
// the updated snapshot.
func (s *Server) handleTrackMessage(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	var req TrackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "text is required"})
	}

	role, err := parseRole(req.Role)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	_, transition, err := s.store.Update(c.Context(), id, req.Text, role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to track message"})
	}

	snap, err := s.store.Snapshot(c.Context(), id, 0, 0)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to build snapshot"})
	}

	return c.JSON(TrackResponse{
		Snapshot:   snap,
		Transition: transition,
	})
}

// handleGetContext returns the snapshot projection for a conversation.
// Query parameters:
//   - top_n (optional): number of ranked topics to return
//   - recent_k (optional): number of recent transitions to return
func (s *Server) handleGetContext(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	topN := 0
	if topNStr := c.Query("top_n"); topNStr != "" {
		parsed, err := strconv.Atoi(topNStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "top_n must be a positive integer"})
		}
		topN = parsed
	}

	recentK := 0
	if recentKStr := c.Query("recent_k"); recentKStr != "" {
		parsed, err := strconv.Atoi(recentKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "recent_k must be a positive integer"})
		}
		recentK = parsed
	}

	snap, err := s.store.Snapshot(c.Context(), id, topN, recentK)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to build snapshot"})
	}

	return c.JSON(snap)
}

// handleResetConversation clears topical state for a conversation.
func (s *Server) handleResetConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	var req ResetRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
		}
	}

	if err := s.store.Reset(c.Context(), id, req.Full); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to reset conversation"})
	}

	return c.JSON(fiber.Map{
		"conversation_id": id,
		"full":            req.Full,
	})
}

func parseRole(raw string) (topic.Role, error) {
	switch topic.Role(raw) {
	case "":
		return topic.RoleUser, nil
	case topic.RoleUser, topic.RoleAssistant, topic.RoleSystem:
		return topic.Role(raw), nil
	default:
		return "", fmt.Errorf("role must be one of user, assistant, system")
	}
}
