package normalize

import (
	"regexp"
	"strings"

	"github.com/yulin-dev/jobsift/internal/model"
)

var (
	tzOffsetRegex = regexp.MustCompile(`(?i)(?:utc|gmt)\s*([+-]\d{1,2})`)
	apacRegex     = regexp.MustCompile(`(?i)\b(asia|apac|asia-pacific)\b`)
)

// ParseRegion maps a free-text location hint onto the region-limit value:
// "worldwide", a region code, or a timezone restriction carrying the
// TimezonePrefix marker (e.g. "tz:UTC+8"). Unrecognized hints default to
// worldwide rather than inventing a restriction.
func ParseRegion(location string) string {
	loc := strings.ToLower(Collapse(location))

	if loc == "" || containsAny(loc, "worldwide", "anywhere", "global") || loc == "remote" {
		return model.RegionWorldwide
	}

	if containsAny(loc, "usa", "us only", "united states", "america", "u.s.") {
		return "US"
	}
	if containsAny(loc, "europe", "eu only", "emea", "european", "uk") {
		return "EU"
	}
	if apacRegex.MatchString(loc) || containsAny(loc, "australia", "latam") {
		return "APAC"
	}
	if loc == "cn" || containsAny(loc, "china", "中国", "国内") {
		return "CN"
	}

	// Explicit UTC±N offsets pass through verbatim behind the marker.
	if m := tzOffsetRegex.FindStringSubmatch(loc); m != nil {
		return model.TimezonePrefix + "UTC" + m[1]
	}

	// Named timezones map to their standard offsets.
	switch {
	case containsAny(loc, "pst", "pacific"):
		return model.TimezonePrefix + "UTC-8"
	case containsAny(loc, "est", "eastern"):
		return model.TimezonePrefix + "UTC-5"
	case containsAny(loc, "cet", "central european"):
		return model.TimezonePrefix + "UTC+1"
	}

	return model.RegionWorldwide
}
