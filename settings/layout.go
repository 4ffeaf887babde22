package settings

import (
	"fmt"
	"strings"
)

// DefaultHost serves the hosted MacroClock configuration pages.
const DefaultHost = "dustinhu.com/projects/library/MacroClock"

const (
	LayoutClassic = "classic"
	LayoutBeta    = "beta"
)

var classicFields = []string{
	"backgroundColor",
	"hourColor",
	"handColor",
	"dotColor",
	"handOutlineColor",
}

var betaFields = []string{
	"vibeToggle",
	"hourFormat",
	"vibeStartTime",
	"vibeEndTime",
	"dateToggle",
	"digTimeToggle",
	"btAlertToggle",
}

// Layout is one configuration page variant: where it lives and which
// record fields it is pre-filled with, in query order.
type Layout struct {
	Name    string
	BaseURL string
	Fields  []string
}

// ClassicLayout is the colour-only Configuration.html page.
func ClassicLayout(host string) Layout {
	return Layout{
		Name:    LayoutClassic,
		BaseURL: pageURL(host, "Configuration.html"),
		Fields:  append([]string(nil), classicFields...),
	}
}

// BetaLayout is ConfigurationBeta.html, which adds vibration, time format
// and alert toggles after the colour fields.
func BetaLayout(host string) Layout {
	fields := make([]string, 0, len(classicFields)+len(betaFields))
	fields = append(fields, classicFields...)
	fields = append(fields, betaFields...)
	return Layout{
		Name:    LayoutBeta,
		BaseURL: pageURL(host, "ConfigurationBeta.html"),
		Fields:  fields,
	}
}

// LayoutByName resolves a layout name from configuration.
func LayoutByName(name, host string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LayoutClassic:
		return ClassicLayout(host), nil
	case LayoutBeta:
		return BetaLayout(host), nil
	default:
		return Layout{}, fmt.Errorf("unknown configuration layout %q", name)
	}
}

// URL builds the configuration page link. A nil record means nothing was
// saved yet and the page opens with its own defaults.
func (l Layout) URL(r Record) string {
	if r == nil {
		return l.BaseURL
	}

	var b strings.Builder
	b.WriteString(l.BaseURL)
	b.WriteString("?")
	for _, field := range l.Fields {
		b.WriteString("&")
		b.WriteString(field)
		b.WriteString("=")
		b.WriteString(EncodeURIComponent(r.FieldText(field)))
	}
	return b.String()
}

func pageURL(host, page string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	host = strings.TrimRight(host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/" + page
}
