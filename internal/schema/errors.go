package schema

import (
	"sort"
	"strings"
)

// FieldErrors 字段 -> 错误信息列表
type FieldErrors map[string][]string

// Add 追加一条错误，同一字段重复信息只保留一次
func (e FieldErrors) Add(field, msg string) {
	for _, m := range e[field] {
		if m == msg {
			return
		}
	}
	e[field] = append(e[field], msg)
}

func (e FieldErrors) HasErrors() bool {
	return len(e) > 0
}

// First 返回字段的第一条错误
func (e FieldErrors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Error 实现 error，按字段名排序输出
func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], "; "))
	}
	return strings.Join(parts, ", ")
}
