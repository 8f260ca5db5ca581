package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/drift/pkg/topic"
)

var (
	trackMessageToolName    = "track_message"
	trackMessageDescription = "Track one conversation message through the topic pipeline. Returns the updated topic decision and the transition the message produced, if any."
)

// TrackMessageInput represents the input arguments for the track_message tool.
type TrackMessageInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"the conversation the message belongs to"`
	Text           string `json:"text" jsonschema:"the message text to track"`
	Role           string `json:"role,omitempty" jsonschema:"message author: user, assistant, or system (default: user)"`
}

// TrackMessageOutput represents the output of the track_message tool.
type TrackMessageOutput struct {
	ConversationID string            `json:"conversation_id"`
	Current        string            `json:"current,omitempty"`
	Confidence     float64           `json:"confidence"`
	Transition     *topic.Transition `json:"transition,omitempty"`
}

// handleTrackMessage processes a track request.
func (s *Server) handleTrackMessage(ctx context.Context, req *mcp.CallToolRequest, input TrackMessageInput) (*mcp.CallToolResult, TrackMessageOutput, error) {
	logger := s.config.Logger

	if input.ConversationID == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "conversation_id is required"},
			},
		}, TrackMessageOutput{}, nil
	}

	if input.Text == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "text is required"},
			},
		}, TrackMessageOutput{}, nil
	}

	role, ok := parseRole(input.Role)
	if !ok {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "role must be one of user, assistant, system"},
			},
		}, TrackMessageOutput{}, nil
	}

	logger.Debug("MCP track message request",
		"conversation_id", input.ConversationID,
		"role", role,
	)

	c, transition, err := s.config.Store.Update(ctx, input.ConversationID, input.Text, role)
	if err != nil {
		logger.Error("failed to track message", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to track message: %v", err)},
			},
		}, TrackMessageOutput{}, nil
	}

	output := TrackMessageOutput{
		ConversationID: input.ConversationID,
		Current:        c.Current,
		Confidence:     c.CurrentConfidence(),
		Transition:     transition,
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal track output", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize output: %v", err)},
			},
		}, TrackMessageOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func parseRole(raw string) (topic.Role, bool) {
	switch topic.Role(raw) {
	case "":
		return topic.RoleUser, true
	case topic.RoleUser, topic.RoleAssistant, topic.RoleSystem:
		return topic.Role(raw), true
	default:
		return "", false
	}
}
