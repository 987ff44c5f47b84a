package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		ua    string
		touch int
		want  client
	}{
		{
			name: "desktop chrome on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			want: client{DeviceType: "desktop", Browser: "chrome", OS: "windows"},
		},
		{
			name: "edge is not chrome",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 Edg/124.0",
			want: client{DeviceType: "desktop", Browser: "edge", OS: "windows"},
		},
		{
			name: "iphone safari",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
			want: client{DeviceType: "mobile", Browser: "safari", OS: "ios"},
		},
		{
			name: "android tablet firefox",
			ua:   "Mozilla/5.0 (Android 14; Tablet; rv:125.0) Gecko/125.0 Firefox/125.0",
			want: client{DeviceType: "tablet", Browser: "firefox", OS: "android"},
		},
		{
			name: "samsung internet is not chrome",
			ua:   "Mozilla/5.0 (Linux; Android 13; SM-S901B) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/23.0 Chrome/115.0.0.0 Mobile Safari/537.36",
			want: client{DeviceType: "mobile", Browser: "samsung", OS: "android"},
		},
		{
			name: "opera on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0",
			want: client{DeviceType: "desktop", Browser: "opera", OS: "windows"},
		},
		{
			name: "other chromium browsers keep their own name",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 YaBrowser/24.1.0.0 Safari/537.36",
			want: client{DeviceType: "desktop", Browser: "yabrowser", OS: "windows"},
		},
		{
			name:  "ipados desktop mode",
			ua:    "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
			touch: 5,
			want:  client{DeviceType: "tablet", Browser: "safari", OS: "ios"},
		},
		{
			name: "mac safari without touch",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
			want: client{DeviceType: "desktop", Browser: "safari", OS: "macos"},
		},
		{
			name: "empty",
			ua:   "",
			want: client{DeviceType: "desktop", Browser: "other", OS: "other"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.ua, tt.touch))
		})
	}
}

func TestParseUTM(t *testing.T) {
	got := parseUTM("https://shop.example/?utm_source=news&utm_medium=email&utm_campaign=spring")
	assert.Equal(t, utm{Source: "news", Medium: "email", Campaign: "spring"}, got)
	assert.Equal(t, utm{}, parseUTM("://bad"))
}
