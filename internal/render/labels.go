package render

import (
	"html/template"

	"github.com/spherical/shopcard/internal/domain"
)

// labels are the fixed UI strings of a shopping card
type labels struct {
	Model          string
	Description    string
	Features       string
	Specifications string
	Applications   string
	Images         string
	Price          string
	AddToCart      string
	ContactQuote   string
	Products       string
	Contact        string
}

var labelSets = map[domain.Language]labels{
	domain.LanguageEnglish: {
		Model:          "Model:",
		Description:    "Product Description",
		Features:       "Key Features",
		Specifications: "Technical Specifications",
		Applications:   "Applications",
		Images:         "Product Images",
		Price:          "Price",
		AddToCart:      "Add to Cart",
		ContactQuote:   "Contact for quote",
		Products:       "Products",
		Contact:        "Contact",
	},
	domain.LanguagePersian: {
		Model:          "مدل:",
		Description:    "توضیحات محصول",
		Features:       "ویژگی‌های کلیدی",
		Specifications: "مشخصات فنی",
		Applications:   "کاربردها",
		Images:         "تصاویر محصول",
		Price:          "قیمت",
		AddToCart:      "افزودن به سبد خرید",
		ContactQuote:   "برای استعلام قیمت تماس بگیرید",
		Products:       "محصولات",
		Contact:        "تماس",
	},
	domain.LanguageChinese: {
		Model:          "型号：",
		Description:    "产品描述",
		Features:       "主要特点",
		Specifications: "技术规格",
		Applications:   "应用领域",
		Images:         "产品图片",
		Price:          "价格",
		AddToCart:      "加入购物车",
		ContactQuote:   "联系询价",
		Products:       "产品",
		Contact:        "联系方式",
	},
}

var fontStacks = map[domain.Language]template.CSS{
	domain.LanguageEnglish: `'Segoe UI', Tahoma, Geneva, Verdana, sans-serif`,
	domain.LanguagePersian: `'Vazirmatn', 'Tahoma', sans-serif`,
	domain.LanguageChinese: `'Microsoft YaHei', 'SimHei', sans-serif`,
}

func labelsFor(lang domain.Language) labels {
	if l, ok := labelSets[lang]; ok {
		return l
	}
	return labelSets[domain.LanguageEnglish]
}

func fontFor(lang domain.Language) template.CSS {
	if f, ok := fontStacks[lang]; ok {
		return f
	}
	return fontStacks[domain.LanguageEnglish]
}
