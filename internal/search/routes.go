package search

import (
	"github.com/emicklei/go-restful/v3"
)

func RegisterRoutes(container *restful.Container, handler *SearchHandler) {
	ws := new(restful.WebService)
	ws.
		Path("/search/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	// Semantic search endpoint
	ws.Route(ws.POST("/semantic").
		To(handler.SemanticSearch).
		Doc("Vector similarity search with school/category filters").
		Reads(SearchRequest{}).
		Writes(SearchResponse{}))

	// Formatted context endpoint
	ws.Route(ws.POST("/context").
		To(handler.Context).
		Doc("Model-ready context for a query").
		Reads(SearchRequest{}).
		Writes(ContextResponse{}))

	container.Add(ws)
}
