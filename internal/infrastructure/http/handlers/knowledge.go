package handlers

import (
	"net/http"
	"strings"

	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"github.com/alchemorsel/vitaplan/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RetrieveRequest is the body of POST /knowledge/retrieve
type RetrieveRequest struct {
	Preference        string `json:"preference"`
	TopK              int    `json:"top_k,omitempty"`
	UseSemanticSearch *bool  `json:"use_semantic_search,omitempty"`
}

// KnowledgeHandlers exposes graph retrieval
type KnowledgeHandlers struct {
	retriever inbound.KnowledgeRetriever
	semantic  bool
	logger    *zap.Logger
}

// NewKnowledgeHandlers creates knowledge handlers. semantic is the search
// mode used when a request does not choose one.
func NewKnowledgeHandlers(retriever inbound.KnowledgeRetriever, semantic bool, logger *zap.Logger) *KnowledgeHandlers {
	return &KnowledgeHandlers{
		retriever: retriever,
		semantic:  semantic,
		logger:    logger.Named("knowledge-handlers"),
	}
}

// Register mounts the knowledge routes
func (h *KnowledgeHandlers) Register(group *gin.RouterGroup) {
	k := group.Group("/knowledge")
	k.POST("/retrieve", h.Retrieve)
	k.GET("/entities/:name/neighbors", h.Neighbors)
}

// Retrieve handles POST /api/v1/knowledge/retrieve
func (h *KnowledgeHandlers) Retrieve(c *gin.Context) {
	var req RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.TopK < 0 {
		fail(c, errors.NewBadRequestError("top_k must not be negative"))
		return
	}

	semantic := h.semantic
	if req.UseSemanticSearch != nil {
		semantic = *req.UseSemanticSearch
	}

	result, err := h.retriever.Retrieve(c.Request.Context(), inbound.RetrieveQuery{
		Preference:        req.Preference,
		TopK:              req.TopK,
		UseSemanticSearch: semantic,
	})
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, result, "")
}

// Neighbors handles GET /api/v1/knowledge/entities/:name/neighbors
func (h *KnowledgeHandlers) Neighbors(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))

	relations, err := h.retriever.Neighbors(c.Request.Context(), name)
	if err != nil {
		fail(c, err)
		return
	}

	respond(c, http.StatusOK, relations, "")
}
