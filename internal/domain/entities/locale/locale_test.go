package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name  string
		prefs []string
		want  Lang
	}{
		{"explicit english", []string{"en"}, English},
		{"regional french", []string{"fr-BE"}, French},
		{"flemish maps to dutch", []string{"nl-BE"}, Dutch},
		{"attribute wins over browser", []string{"fr", "en-US"}, French},
		{"empty attribute uses browser", []string{"", "en-GB"}, English},
		{"accept-language list", []string{"de-DE,en;q=0.8"}, English},
		{"nothing", nil, Dutch},
		{"garbage", []string{"!!"}, Dutch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.prefs...))
		})
	}
}

func TestTextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, texts[English][KeySend], Text(English, KeySend))
	assert.Equal(t, texts[Dutch][KeySend], Text(Lang("de"), KeySend))
}
