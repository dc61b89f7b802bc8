// Package dateutils provides the date parsing used during normalization.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Layout constants for the standard parse chain. Order matters: the first
// layout that parses a value wins.
const (
	LayoutDayMonthYearTime = "2 Jan 2006 3:04 PM"
	LayoutDayMonthYear     = "2 Jan 2006"
	LayoutISO              = "2006-01-02"
	LayoutEuropeanSlash    = "02/01/2006"
	LayoutUSSlash          = "01/02/2006"
	LayoutEuropeanDash     = "02-01-2006"
	LayoutISOFull          = "2006-01-02 15:04:05"
)

// StandardLayouts is the default ordered parse chain. Bank configs may
// prepend additional layouts.
var StandardLayouts = []string{
	LayoutDayMonthYearTime,
	LayoutDayMonthYear,
	LayoutISO,
	LayoutEuropeanSlash,
	LayoutUSSlash,
	LayoutEuropeanDash,
	LayoutISOFull,
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanDateString trims and collapses whitespace in a raw date value.
func CleanDateString(raw string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
}

// ParseDate tries the standard chain plus any extra layouts and returns the
// first successful parse along with the layout that matched.
func ParseDate(raw string, extraLayouts ...string) (time.Time, string, error) {
	cleaned := CleanDateString(raw)
	if cleaned == "" {
		return time.Time{}, "", fmt.Errorf("empty date string")
	}

	layouts := make([]string, 0, len(StandardLayouts)+len(extraLayouts))
	layouts = append(layouts, StandardLayouts...)
	layouts = append(layouts, extraLayouts...)

	for _, layout := range layouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, layout, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", raw)
}

// ToISODate formats a time as YYYY-MM-DD.
func ToISODate(t time.Time) string {
	return t.Format(LayoutISO)
}

// strptime directive → Go layout fragment. Bank configs carry strptime-style
// format strings; this table translates them.
var strptimeFragments = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'b': "Jan",
	'B': "January",
	'd': "02",
	'e': "2",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
}

// LayoutFromStrptime converts a strptime-style format such as "%d/%m/%Y" to
// the equivalent Go layout. Unknown directives are kept verbatim.
func LayoutFromStrptime(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			if frag, ok := strptimeFragments[format[i+1]]; ok {
				b.WriteString(frag)
				i++
				continue
			}
			if format[i+1] == '%' {
				b.WriteByte('%')
				i++
				continue
			}
		}
		b.WriteByte(format[i])
	}
	return b.String()
}

// LayoutsFromConfig converts a list of config-supplied date formats,
// accepting either strptime directives or native Go layouts.
func LayoutsFromConfig(formats []string) []string {
	layouts := make([]string, 0, len(formats))
	for _, f := range formats {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if strings.Contains(f, "%") {
			f = LayoutFromStrptime(f)
		}
		layouts = append(layouts, f)
	}
	return layouts
}
