package search

import (
	"database/sql"
	"errors"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// DriverName 注册了 rank() 函数的 sqlite3 驱动名
// gorm 与 golang-migrate 均需使用该驱动打开数据库，否则排序 SQL 会报 "no such function"
const DriverName = "sqlite3_ideascube"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("rank", Rank, true)
		},
	})
}

// isMatchSyntaxError 判断是否为 FTS 查询表达式解析失败
// SQLite 以通用的 SQLITE_ERROR 报告，需结合错误信息区分缺表等其他错误
func isMatchSyntaxError(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrError {
		return false
	}
	return strings.Contains(se.Error(), "malformed MATCH")
}
