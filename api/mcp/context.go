package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/drift/pkg/topic"
)

var (
	topicContextToolName    = "topic_context"
	topicContextDescription = "Get the tracked topic context for a conversation: the current topic, the strongest active topics ranked by confidence, and the most recent transitions. Consult this before generating a response."
)

// TopicContextInput represents the input arguments for the topic_context tool.
type TopicContextInput struct {
	ConversationID string `json:"conversation_id" jsonschema:"the conversation to fetch topic context for"`
	TopN           int    `json:"top_n,omitempty" jsonschema:"number of ranked topics to return (default: 5)"`
	RecentK        int    `json:"recent_k,omitempty" jsonschema:"number of recent transitions to return (default: 10)"`
}

// handleTopicContext processes a topic context request.
func (s *Server) handleTopicContext(ctx context.Context, req *mcp.CallToolRequest, input TopicContextInput) (*mcp.CallToolResult, topic.Snapshot, error) {
	logger := s.config.Logger

	if input.ConversationID == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "conversation_id is required"},
			},
		}, topic.Snapshot{}, nil
	}

	logger.Debug("MCP topic context request",
		"conversation_id", input.ConversationID,
		"top_n", input.TopN,
		"recent_k", input.RecentK,
	)

	snap, err := s.config.Store.Snapshot(ctx, input.ConversationID, input.TopN, input.RecentK)
	if err != nil {
		logger.Error("failed to build snapshot", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to build snapshot: %v", err)},
			},
		}, topic.Snapshot{}, nil
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(snap)
	if err != nil {
		logger.Error("failed to marshal snapshot", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize snapshot: %v", err)},
			},
		}, topic.Snapshot{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, snap, nil
}
