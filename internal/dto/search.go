package dto

// ── 搜索模块 DTO ──

// SearchRequest 搜索查询参数，tags 以逗号分隔
type SearchRequest struct {
	Q      string `form:"q"      binding:"omitempty,max=200"`
	Model  string `form:"model"  binding:"omitempty,oneof=Content Book Document"`
	Kind   string `form:"kind"   binding:"omitempty,max=40"`
	Lang   string `form:"lang"   binding:"omitempty,max=10"`
	Source string `form:"source" binding:"omitempty,max=100"`
	Tags   string `form:"tags"   binding:"omitempty,max=500"`
}

// SearchHit 单条搜索结果
type SearchHit struct {
	Model     string   `json:"model"`
	ID        uint     `json:"id"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary,omitempty"`
	Kind      string   `json:"kind,omitempty"`
	Lang      string   `json:"lang,omitempty"`
	Tags      []string `json:"tags"`
	Public    bool     `json:"public"`
	Relevancy float64  `json:"relevancy"`
}

// SearchResponse 搜索响应
type SearchResponse struct {
	Query string      `json:"query"`
	Total int         `json:"total"`
	Hits  []SearchHit `json:"hits"`
}

// ReindexResponse 重建索引响应
type ReindexResponse struct {
	Counts map[string]int `json:"counts"`
}
