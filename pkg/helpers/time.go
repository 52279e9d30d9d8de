package helpers

import (
	"fmt"
	"strings"
	"time"

	mailtpl "github.com/oksasatya/go-media-identity/pkg/mailer/templates"
)

// ApplyGeo fills Location and, when the zone is known, rewrites Time from
// TimeAt in the recipient's local time. Existing Location values are kept.
func ApplyGeo(data map[string]any, g mailtpl.Geo) {
	if loc := mailtpl.FormatGeo(g); loc != "" {
		if v, ok := data["Location"]; !ok || fmt.Sprintf("%v", v) == "" {
			data["Location"] = loc
		}
	}
	if strings.TrimSpace(g.Timezone) == "" {
		return
	}
	zone, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	if v, ok := data["TimeAt"]; ok {
		if t, ok := parseTimeAny(v); ok {
			data["Time"] = t.In(zone).Format(mailtpl.TimeLayout + " MST")
		}
	}
}

func parseTimeAny(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, !t.IsZero()
	}
	s := fmt.Sprintf("%v", v)
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05 -0700",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
