package model

import (
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ErrImageIndexOutOfRange 图片下标越界
var ErrImageIndexOutOfRange = errors.New("image index out of range")

// ImageList 有序图片 URL 列表，顺序即展示顺序
// 所有操作都返回新切片，不修改接收者
type ImageList []string

// GormDataType 通用数据类型
func (ImageList) GormDataType() string {
	return "text[]"
}

// GormDBDataType postgres 使用 text[]，其他方言退化为 text
func (ImageList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Value 空列表落库为 NULL，而不是 {}
func (l ImageList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return pq.StringArray(l).Value()
}

// Scan 读取数组，空数组归一为 nil
func (l *ImageList) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	if len(arr) == 0 {
		*l = nil
		return nil
	}
	*l = ImageList(arr)
	return nil
}

// Clone 复制
func (l ImageList) Clone() ImageList {
	if l == nil {
		return nil
	}
	out := make(ImageList, len(l))
	copy(out, l)
	return out
}

// Normalize 去掉空白项，空列表返回 nil
func (l ImageList) Normalize() ImageList {
	var out ImageList
	for _, u := range l {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Append 追加到末尾
func (l ImageList) Append(urls ...string) ImageList {
	out := make(ImageList, 0, len(l)+len(urls))
	out = append(out, l...)
	out = append(out, urls...)
	return out.Normalize()
}

// Insert 在 index 处插入，index == len 等价于追加
func (l ImageList) Insert(index int, url string) (ImageList, error) {
	if index < 0 || index > len(l) {
		return l.Clone(), ErrImageIndexOutOfRange
	}
	out := make(ImageList, 0, len(l)+1)
	out = append(out, l[:index]...)
	out = append(out, url)
	out = append(out, l[index:]...)
	return out, nil
}

// Remove 删除 index 处的图片
func (l ImageList) Remove(index int) (ImageList, error) {
	if index < 0 || index >= len(l) {
		return l.Clone(), ErrImageIndexOutOfRange
	}
	out := make(ImageList, 0, len(l)-1)
	out = append(out, l[:index]...)
	out = append(out, l[index+1:]...)
	return out.Normalize(), nil
}

// Move 把 from 处的图片移动到 to
func (l ImageList) Move(from, to int) (ImageList, error) {
	if from < 0 || from >= len(l) || to < 0 || to >= len(l) {
		return l.Clone(), ErrImageIndexOutOfRange
	}
	if from == to {
		return l.Clone(), nil
	}
	moved := l[from]
	rest := make(ImageList, 0, len(l)-1)
	rest = append(rest, l[:from]...)
	rest = append(rest, l[from+1:]...)
	return rest.Insert(to, moved)
}
