package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify 把标题转换为 URL 安全的 slug
// 去掉变音符号，转小写，空白/下划线/连字符折叠为单个 "-"，其余标点丢弃，首尾不留 "-"
// 相同输入永远得到相同输出；唯一性由数据库唯一索引保证
func Slugify(title string) string {
	// transform.Chain 有内部状态，每次调用单独创建
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, title)
	if err != nil {
		stripped = title
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingDash := false
	for _, r := range strings.ToLower(stripped) {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingDash = true
		}
	}
	return b.String()
}
