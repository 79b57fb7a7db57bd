package dto

import "encoding/json"

// ── 配置模块 DTO ──

// SetConfigRequest 写入配置值，value 为任意 JSON
type SetConfigRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}

// ConfigValueResponse 单个配置项
type ConfigValueResponse struct {
	Namespace  string      `json:"namespace"`
	Key        string      `json:"key"`
	Value      interface{} `json:"value"`
	Default    interface{} `json:"default"`
	IsDefault  bool        `json:"is_default"`
	Summary    string      `json:"summary"`
	PrettyType string      `json:"pretty_type"`
	ActorID    *uint       `json:"actor_id,omitempty"`
	Date       string      `json:"date,omitempty"`
}

// ConfigNamespaceResponse 命名空间及其配置项
type ConfigNamespaceResponse struct {
	Namespace string                `json:"namespace"`
	Options   []ConfigValueResponse `json:"options"`
}
