package schema

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"boards_catalog_v1/internal/model"
)

// ==================== 字段与规则 ====================

// 字段名与持久化列名一致，前端按此 key 展示错误
const (
	FieldTitle         = "title"
	FieldSlug          = "slug"
	FieldDescription   = "description"
	FieldPrice         = "price"
	FieldImageURLs     = "image_urls"
	FieldIsAvailable   = "is_available"
	FieldUserID        = "user_id"
	FieldCurrentImages = "current_images"
)

type fieldRule struct {
	tag      string
	messages map[string]string // validator tag -> 提示
	fallback string
}

func (r fieldRule) message(tag string) string {
	if msg, ok := r.messages[tag]; ok {
		return msg
	}
	return r.fallback
}

var rules = map[string]fieldRule{
	FieldTitle: {
		tag: "min=5,max=255",
		messages: map[string]string{
			"min": "Title must be at least 5 characters long.",
			"max": "Title must be at most 255 characters long.",
		},
		fallback: "Invalid title.",
	},
	FieldSlug: {
		tag:      "required,max=255",
		fallback: "Title must contain letters or digits.",
	},
	FieldDescription: {
		tag:      "max=10000",
		fallback: "Description must be at most 10000 characters long.",
	},
	FieldPrice: {
		tag:      "gt=0",
		fallback: "Price must be a positive number.",
	},
	FieldImageURLs: {
		tag:      "dive,url",
		fallback: "Invalid url",
	},
	FieldUserID: {
		tag:      "required,uuid",
		fallback: "Invalid user ID.",
	},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// check 用 validator 校验单个字段，失败时按规则写入错误
func check(errs FieldErrors, field string, value interface{}) {
	checkAs(errs, field, field, value)
}

// checkAs 按 rule 字段的规则校验，错误写到 key 下
func checkAs(errs FieldErrors, rule, key string, value interface{}) {
	r := rules[rule]
	err := validate.Var(value, r.tag)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(key, r.fallback)
		return
	}
	for _, fe := range verrs {
		errs.Add(key, r.message(fe.Tag()))
	}
}

// checkSlug slug 由标题生成，标题本身合法时才校验，错误归到 title 下
func checkSlug(errs FieldErrors, slug string) {
	if len(errs[FieldTitle]) > 0 {
		return
	}
	checkAs(errs, FieldSlug, FieldTitle, slug)
}

// ==================== 候选记录 ====================

// ListingInput 解码后的候选记录，nil 表示未提交该字段
type ListingInput struct {
	Title       *string
	Slug        *string
	Description *string
	Price       *float64
	ClearPrice  bool
	ImageURLs   *model.ImageList
	IsAvailable *bool
	UserID      *string
}

// ==================== 全量校验（创建） ====================

// ValidateCreate 全量校验，成功时返回规范化后的 Listing
func ValidateCreate(in ListingInput) (*model.Listing, FieldErrors) {
	errs := FieldErrors{}

	title := deref(in.Title)
	check(errs, FieldTitle, title)
	checkSlug(errs, deref(in.Slug))
	if in.Description != nil {
		check(errs, FieldDescription, *in.Description)
	}
	if in.Price != nil && !in.ClearPrice {
		check(errs, FieldPrice, *in.Price)
	}
	var images model.ImageList
	if in.ImageURLs != nil {
		images = in.ImageURLs.Normalize()
		if len(images) > 0 {
			check(errs, FieldImageURLs, []string(images))
		}
	}
	check(errs, FieldUserID, deref(in.UserID))

	if errs.HasErrors() {
		return nil, errs
	}

	listing := &model.Listing{
		Title:       title,
		Slug:        deref(in.Slug),
		ImageURLs:   images,
		IsAvailable: true,
		UserID:      deref(in.UserID),
	}
	if in.Description != nil && *in.Description != "" {
		desc := *in.Description
		listing.Description = &desc
	}
	if in.Price != nil && !in.ClearPrice {
		price := *in.Price
		listing.Price = &price
	}
	if in.IsAvailable != nil {
		listing.IsAvailable = *in.IsAvailable
	}
	return listing, nil
}

// ==================== 部分校验（更新） ====================

// ValidatePatch 部分校验，只校验提交了的字段；user_id 不属于可更新字段
func ValidatePatch(in ListingInput) (model.ListingPatch, FieldErrors) {
	errs := FieldErrors{}
	patch := model.ListingPatch{
		Title:       in.Title,
		Slug:        in.Slug,
		Description: in.Description,
		ClearPrice:  in.ClearPrice,
		IsAvailable: in.IsAvailable,
	}

	if in.Title != nil {
		check(errs, FieldTitle, *in.Title)
	}
	if in.Slug != nil {
		checkSlug(errs, *in.Slug)
	}
	if in.Description != nil {
		check(errs, FieldDescription, *in.Description)
	}
	if in.Price != nil && !in.ClearPrice {
		check(errs, FieldPrice, *in.Price)
		patch.Price = in.Price
	}
	if in.ImageURLs != nil {
		images := in.ImageURLs.Normalize()
		if len(images) > 0 {
			check(errs, FieldImageURLs, []string(images))
		}
		patch.ImageURLs = &images
	}

	if errs.HasErrors() {
		return model.ListingPatch{}, errs
	}
	return patch, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
