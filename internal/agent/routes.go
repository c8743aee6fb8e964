package agent

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"github.com/kitabmazhab/kitab-agent/internal/middleware"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/chat").
			To(handler.Chat).
			Doc("Chat with the mazhab assistant").
			Metadata(restfulspec.KeyOpenAPITags, []string{"chat"}).
			Reads(ChatRequest{}).
			Writes(ChatResponse{}).
			Returns(200, "OK", ChatResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/admin/reload").
			To(handler.Reload).
			Doc("Reload the knowledge base and rebuild the index").
			Metadata(restfulspec.KeyOpenAPITags, []string{"admin"}).
			Writes(ReloadResponse{}).
			Returns(200, "OK", ReloadResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	container.Add(ws)
}
