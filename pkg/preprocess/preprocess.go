package preprocess

import (
	"regexp"
	"strings"
)

// Supported language codes.
const (
	LangEnglish = "en"
	LangChinese = "zh"
	LangKorean  = "ko"
)

var (
	fillerRe = regexp.MustCompile(`(?i)\b(uh|um|like|you know|so|actually|basically|literally)\b`)
	spaceRe  = regexp.MustCompile(`\s+`)

	// Non-English cleanup keeps the language's own block plus basic
	// punctuation and whitespace.
	nonChineseRe = regexp.MustCompile(`[^\x{4E00}-\x{9FFF}\s.,!?;:]`)
	nonKoreanRe  = regexp.MustCompile(`[^\x{AC00}-\x{D7AF}\s.,!?;:]`)
)

// Text strips filler tokens (English only) and collapses whitespace.
// For Chinese and Korean it restricts output to the language's Unicode
// block plus basic punctuation. It never fails: unknown languages get
// whitespace collapsing only.
func Text(text, language string) string {
	if language == LangEnglish {
		text = fillerRe.ReplaceAllString(text, "")
	}

	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))

	switch language {
	case LangChinese:
		text = nonChineseRe.ReplaceAllString(text, "")
	case LangKorean:
		text = nonKoreanRe.ReplaceAllString(text, "")
	}

	return text
}

// Texts preprocesses each text with its corresponding language code.
// A short languages slice is padded with English.
func Texts(texts []string, languages []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		lang := LangEnglish
		if i < len(languages) {
			lang = languages[i]
		}
		out[i] = Text(t, lang)
	}
	return out
}
