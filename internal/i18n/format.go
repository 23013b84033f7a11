// Package i18n renders scores and labels for the two report languages.
// The Arabic-Indic digit mapping is a fixed ten-entry table on purpose; a
// full locale library buys nothing for one transliteration rule.
package i18n

import (
	"math"
	"strconv"
	"strings"

	"github.com/aqlhr/policy-intel-cli/internal/model"
)

var arabicIndicDigits = [10]rune{'٠', '١', '٢', '٣', '٤', '٥', '٦', '٧', '٨', '٩'}

// Arabic-Indic percent sign.
const arabicPercent = "٪"

// ArabicDigits transliterates every ASCII digit in s to its Arabic-Indic
// counterpart. Non-digit runes pass through unchanged.
func ArabicDigits(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) * 2)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(arabicIndicDigits[r-'0'])
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// FormatPercent renders a score value as a whole percentage in the given
// language. 0 and 1 render as exactly 0% and 100% with no sign or decimal
// artifacts.
func FormatPercent(s model.Score, lang string) string {
	pct := strconv.Itoa(int(math.Round(s.Value * 100)))
	if lang == model.LangArabic {
		return ArabicDigits(pct) + arabicPercent
	}
	return pct + "%"
}

// FormatConfidence renders a score's confidence the same way FormatPercent
// renders its value.
func FormatConfidence(s model.Score, lang string) string {
	return FormatPercent(model.Score{Value: s.Confidence}, lang)
}

var levelLabels = map[model.RiskLevel]map[string]string{
	model.RiskLow:    {model.LangEnglish: "Low", model.LangArabic: "منخفض"},
	model.RiskMedium: {model.LangEnglish: "Medium", model.LangArabic: "متوسط"},
	model.RiskHigh:   {model.LangEnglish: "High", model.LangArabic: "مرتفع"},
}

// LevelLabel returns the qualitative label for a risk level. Unknown
// languages fall back to English.
func LevelLabel(level model.RiskLevel, lang string) string {
	labels, ok := levelLabels[level]
	if !ok {
		return string(level)
	}
	if label, ok := labels[lang]; ok {
		return label
	}
	return labels[model.LangEnglish]
}
