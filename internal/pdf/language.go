package pdf

import (
	"unicode"

	"github.com/spherical/shopcard/internal/domain"
)

// scriptShare is the share of letters a script needs before it decides the language
const scriptShare = 0.2

// DetectLanguage guesses the catalog language from the script of its text:
// Arabic script reads as Persian, Han as Chinese, anything else as English.
func DetectLanguage(text string) domain.Language {
	var letters, arabic, han int
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Arabic):
			arabic++
			letters++
		case unicode.In(r, unicode.Han):
			han++
			letters++
		case unicode.IsLetter(r):
			letters++
		}
	}
	if letters == 0 {
		return domain.LanguageEnglish
	}
	switch {
	case arabic >= han && float64(arabic) >= scriptShare*float64(letters):
		return domain.LanguagePersian
	case float64(han) >= scriptShare*float64(letters):
		return domain.LanguageChinese
	default:
		return domain.LanguageEnglish
	}
}
