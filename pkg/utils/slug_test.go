package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"普通标题", "Red Longboard", "red-longboard"},
		{"多余空白", "  Red   Longboard  ", "red-longboard"},
		{"变音符号", "Café Crème Cruiser", "cafe-creme-cruiser"},
		{"标点被丢弃", "Rock'n'Roll Deck!!", "rocknroll-deck"},
		{"连字符与下划线折叠", "Pintail -- Drop_Through", "pintail-drop-through"},
		{"数字保留", "Deck 2024 Edition", "deck-2024-edition"},
		{"首尾标点", "--Hello World--", "hello-world"},
		{"非拉丁字符丢弃", "Доска Board", "board"},
		{"全是标点", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestSlugify_Deterministic(t *testing.T) {
	titles := []string{"Red Longboard", "Ünïcödé Tëst Board", "a  b\tc\nd"}
	for _, title := range titles {
		first := Slugify(title)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Slugify(title))
		}
	}
}
