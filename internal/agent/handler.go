package agent

import (
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"

	"github.com/kitabmazhab/kitab-agent/internal/middleware"
)

type Handler struct {
	service *Service
	modelID string
}

func NewHandler(service *Service, modelID string) *Handler {
	return &Handler{
		service: service,
		modelID: modelID,
	}
}

// Chat handles POST /api/v1/chat
func (h *Handler) Chat(req *restful.Request, resp *restful.Response) {
	var chatRequest ChatRequest

	if err := req.ReadEntity(&chatRequest); err != nil {
		log.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	if err := chatRequest.Validate(); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	log.Info().
		Str("user_id", chatRequest.UserID).
		Int("message_length", len(chatRequest.Message)).
		Msg("Process Chat")

	ctx := req.Request.Context()

	reply, err := h.service.HandleMessage(ctx, chatRequest.UserID, chatRequest.Message)
	if err != nil {
		log.Error().Err(err).Msg("Failed to handle message")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	chatResponse := ChatResponse{
		Reply:     reply.Answer,
		ToolsUsed: reply.ToolsUsed,
		Model:     h.modelID,
	}

	resp.WriteHeaderAndEntity(http.StatusOK, chatResponse)
}

// Health handles GET /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	health := h.service.Health(req.Request.Context())
	resp.WriteHeaderAndEntity(http.StatusOK, health)
}

// Reload handles POST /api/v1/admin/reload
func (h *Handler) Reload(req *restful.Request, resp *restful.Response) {
	count, err := h.service.Reload(req.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to reload knowledge base")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, ReloadResponse{Chunks: count})
}
