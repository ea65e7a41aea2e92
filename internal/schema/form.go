package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"boards_catalog_v1/internal/model"
	"boards_catalog_v1/pkg/utils"
)

// Mode 表单解码模式
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// DecodeListingForm 把原始表单值解码为 ListingInput
// 创建模式下缺省字段保持 nil；更新模式下只有出现的字段才会被写入
func DecodeListingForm(values map[string][]string, mode Mode) (ListingInput, FieldErrors) {
	var in ListingInput
	errs := FieldErrors{}

	if title, ok := formValue(values, FieldTitle); ok || mode == ModeCreate {
		in.Title = &title
		slug := utils.Slugify(title)
		in.Slug = &slug
	}

	if desc, ok := formValue(values, FieldDescription); ok {
		in.Description = &desc
	}

	if raw, ok := formValue(values, FieldPrice); ok {
		if raw == "" {
			// 更新时空价格表示清空；创建时等同未填写
			in.ClearPrice = mode == ModeUpdate
		} else {
			price, err := parsePrice(raw)
			if err != nil {
				errs.Add(FieldPrice, "Price must be a number.")
			} else {
				in.Price = &price
			}
		}
	}

	// 未勾选的复选框不会提交；表单可在复选框前放 value=off 的隐藏字段，取最后一个值
	if raw, ok := lastFormValue(values, FieldIsAvailable); ok {
		available, valid := ParseBool(raw)
		if !valid {
			errs.Add(FieldIsAvailable, "Availability must be a boolean.")
		} else {
			in.IsAvailable = &available
		}
	}

	if mode == ModeUpdate {
		if raw, ok := formValue(values, FieldCurrentImages); ok {
			images, err := ParseImageList(raw)
			if err != nil {
				errs.Add(FieldCurrentImages, "Current images must be a JSON array of URLs.")
			} else {
				in.ImageURLs = &images
			}
		}
	}

	if errs.HasErrors() {
		return ListingInput{}, errs
	}
	return in, nil
}

// ParseBool 解析复选框与常见布尔写法
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes":
		return true, true
	case "off", "false", "0", "no":
		return false, true
	}
	return false, false
}

// ParseImageList 解析 JSON 字符串数组，空串视为空列表
func ParseImageList(raw string) (model.ImageList, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return nil, err
	}
	return model.ImageList(urls).Normalize(), nil
}

func parsePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, strconv.ErrSyntax
	}
	return price, nil
}

func lastFormValue(values map[string][]string, key string) (string, bool) {
	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.TrimSpace(vs[len(vs)-1]), true
}

// formValue 取第一个值并去掉首尾空白
func formValue(values map[string][]string, key string) (string, bool) {
	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.TrimSpace(vs[0]), true
}
