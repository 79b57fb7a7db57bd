package dto

// ── 媒体导入 DTO ──

// ImportMediasRequest 媒体导入选项
type ImportMediasRequest struct {
	Path     string // CSV 或 .xlsx 元数据文件
	Encoding string // CSV 编码，为空时按 UTF-8
	Update   bool   // 同标题同类型的文档已存在时覆盖
	DryRun   bool   // 只校验不保存
}
