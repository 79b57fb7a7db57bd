package errors

import "errors"

// 跨模块共享的业务错误，各模块在 service 层按需包装

// ErrStaffRequired 操作仅限管理员
var ErrStaffRequired = errors.New("该操作仅限管理员")

// ErrEmptyUpload 上传内容为空
var ErrEmptyUpload = errors.New("未找到上传文件")
