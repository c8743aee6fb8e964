package agent

import (
	"strings"

	"github.com/kitabmazhab/kitab-agent/internal/middleware"
)

type ChatRequest struct {
	UserID  string `json:"user_id" description:"Stable chat identifier, e.g. the gateway phone number"`
	Message string `json:"message" description:"Raw user utterance"`
}

type ChatResponse struct {
	Reply     string   `json:"reply" description:"Assistant reply text"`
	ToolsUsed []string `json:"tools_used,omitempty" description:"Retrieval tools that produced the context"`
	Model     string   `json:"model,omitempty" description:"Model ID used"`
}

type HealthResponse struct {
	Status              string `json:"status" description:"Service status"`
	Version             string `json:"version" description:"API version"`
	IndexedChunks       int    `json:"indexed_chunks" description:"Chunks in the current index generation"`
	ActiveConversations int    `json:"active_conversations" description:"Users with stored history"`
}

type ReloadResponse struct {
	Chunks int `json:"chunks" description:"Chunks indexed by the reload"`
}

func (c *ChatRequest) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return middleware.ErrEmptyUserID
	}
	if strings.TrimSpace(c.Message) == "" {
		return middleware.ErrEmptyMessage
	}
	return nil
}
