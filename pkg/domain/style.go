package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownStyle は定義済みプリセット以外のスタイル名が指定された場合のエラーです。
var ErrUnknownStyle = errors.New("unknown style preset")

// Style は生成画像の雰囲気を決める固定プリセットです。
type Style int

const (
	StyleCorporateExecutive Style = iota
	StyleTechEntrepreneur
	StyleCreativeProfessional
	StyleMedicalProfessional
	StyleAcademicScholar
)

// DefaultStyle は先頭のプリセットです。
const DefaultStyle = StyleCorporateExecutive

var styleNames = [...]string{
	StyleCorporateExecutive:   "Corporate Executive",
	StyleTechEntrepreneur:     "Tech Entrepreneur",
	StyleCreativeProfessional: "Creative Professional",
	StyleMedicalProfessional:  "Medical Professional",
	StyleAcademicScholar:      "Academic Scholar",
}

func (s Style) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Style(%d)", int(s))
	}
	return styleNames[s]
}

// Valid はプリセットの範囲内かどうかを返します。
func (s Style) Valid() bool {
	return s >= 0 && int(s) < len(styleNames)
}

// Styles は表示順に並んだ全プリセットを返します。
func Styles() []Style {
	out := make([]Style, len(styleNames))
	for i := range styleNames {
		out[i] = Style(i)
	}
	return out
}

// ParseStyle は表示名からプリセットを引きます。
func ParseStyle(name string) (Style, error) {
	for i, n := range styleNames {
		if n == name {
			return Style(i), nil
		}
	}
	return DefaultStyle, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
}

// LoadingMessages は生成中に順番に表示する固定フレーズです。
var LoadingMessages = [...]string{
	"Analyzing facial features...",
	"Selecting premium attire...",
	"Perfecting studio lighting...",
	"Applying high-end textures...",
	"Almost ready for your LinkedIn profile...",
}

// NextLoadingIndex は i の次のインデックスを返し、末尾で 0 に戻ります。
func NextLoadingIndex(i int) int {
	return (i + 1) % len(LoadingMessages)
}
