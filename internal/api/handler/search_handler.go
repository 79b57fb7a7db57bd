package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ideascube/ideascube-sub000/internal/dto"
	"github.com/ideascube/ideascube-sub000/internal/service"
	"github.com/ideascube/ideascube-sub000/pkg/response"
)

// SearchHandler 搜索模块 HTTP 处理器
type SearchHandler struct {
	searchSvc service.SearchService
}

// NewSearchHandler 创建 SearchHandler
func NewSearchHandler(searchSvc service.SearchService) *SearchHandler {
	return &SearchHandler{searchSvc: searchSvc}
}

// Search 全文检索；携带管理员 Token 时包含非公开记录
// GET /api/v1/search?q=&model=&kind=&lang=&source=&tags=a,b
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.searchSvc.Search(c.Request.Context(), &req, IsStaff(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			response.BadRequest(c, 20001, "搜索语法错误")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// Reindex 全量重建索引
// POST /api/v1/search/reindex
func (h *SearchHandler) Reindex(c *gin.Context) {
	counts, err := h.searchSvc.Reindex(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, dto.ReindexResponse{Counts: counts})
}
