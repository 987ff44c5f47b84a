package widget

import (
	"net/url"
	"strings"

	"github.com/mileusna/useragent"
)

// client describes the visitor's device as reported in the session record.
type client struct {
	DeviceType string
	Browser    string
	OS         string
}

var browserNames = map[string]string{
	useragent.Chrome:           "chrome",
	useragent.Edge:             "edge",
	useragent.Opera:            "opera",
	useragent.OperaMini:        "opera",
	useragent.OperaTouch:       "opera",
	useragent.Firefox:          "firefox",
	useragent.Safari:           "safari",
	useragent.MobileSafari:     "safari",
	useragent.SamsungBrowser:   "samsung",
	useragent.Vivaldi:          "vivaldi",
	useragent.InternetExplorer: "ie",
}

var osNames = map[string]string{
	useragent.Windows:  "windows",
	useragent.IOS:      "ios",
	useragent.Android:  "android",
	useragent.MacOS:    "macos",
	useragent.Linux:    "linux",
	useragent.ChromeOS: "chromeos",
}

// classify derives device type, browser and OS from a user agent string.
// touchPoints is the host's maxTouchPoints: iPadOS in desktop mode sends the macOS
// Safari agent verbatim and only touch support tells them apart.
func classify(ua string, touchPoints int) client {
	parsed := useragent.Parse(ua)
	c := client{DeviceType: "desktop", Browser: "other", OS: "other"}

	switch {
	case parsed.Tablet:
		c.DeviceType = "tablet"
	case parsed.Mobile:
		c.DeviceType = "mobile"
	}

	if name, ok := browserNames[parsed.Name]; ok {
		c.Browser = name
	} else if parsed.Name != "" && parsed.Name != parsed.String && !parsed.Bot {
		c.Browser = strings.ToLower(strings.ReplaceAll(parsed.Name, " ", "_"))
	}

	if name, ok := osNames[parsed.OS]; ok {
		c.OS = name
	}

	if parsed.OS == useragent.MacOS && touchPoints > 1 {
		c.DeviceType = "tablet"
		c.OS = "ios"
	}
	return c
}

type utm struct {
	Source, Medium, Campaign string
}

func parseUTM(rawURL string) utm {
	u, err := url.Parse(rawURL)
	if err != nil {
		return utm{}
	}
	q := u.Query()
	return utm{Source: q.Get("utm_source"), Medium: q.Get("utm_medium"), Campaign: q.Get("utm_campaign")}
}
