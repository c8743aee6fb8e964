package search

import (
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"
)

type SearchHandler struct {
	service *Service
}

func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{
		service: service,
	}
}

// SemanticSearch handles POST /search/v1/semantic
func (h *SearchHandler) SemanticSearch(req *restful.Request, resp *restful.Response) {
	var searchRequest SearchRequest

	if err := req.ReadEntity(&searchRequest); err != nil {
		resp.WriteError(http.StatusBadRequest, err)
		return
	}

	// Set default search request limit if it's not set by the user
	if searchRequest.Limit == 0 {
		searchRequest.Limit = 5
	}

	ctx := req.Request.Context()

	searchResults, err := h.service.Search(ctx, searchRequest.Query, searchRequest.Limit, searchRequest.School, searchRequest.Category)
	if err != nil {
		log.Error().Err(err).Msg("Semantic search failed")
		resp.WriteError(http.StatusInternalServerError, err)
		return
	}

	response := SearchResponse{
		Query:  searchRequest.Query,
		Result: searchResults,
		Count:  len(searchResults),
	}

	resp.WriteEntity(response)
}

// Context handles POST /search/v1/context
func (h *SearchHandler) Context(req *restful.Request, resp *restful.Response) {
	var searchRequest SearchRequest
	if err := req.ReadEntity(&searchRequest); err != nil {
		resp.WriteError(http.StatusBadRequest, err)
		return
	}

	if searchRequest.Limit == 0 {
		searchRequest.Limit = 5
	}

	ctx := req.Request.Context()
	formatted := h.service.ContextFor(ctx, searchRequest.Query, searchRequest.Limit, searchRequest.School)

	resp.WriteEntity(ContextResponse{
		Query:   searchRequest.Query,
		Context: formatted,
	})
}
