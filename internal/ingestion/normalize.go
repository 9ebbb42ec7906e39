package ingestion

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/roster/internal/domain"
)

// Fallback layouts tried after the day-first dash form. Month-first slashes win over
// day-first slashes, matching how spreadsheet exports are usually read.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2.1.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	time.RFC1123Z,
	time.RFC1123,
}

var currencyPrefixes = []string{"INR", "Rs.", "Rs", "₹", "$"}

// normalize coerces mapped strings into typed values. It never fails: unparseable dates
// become null and unparseable or missing numbers become zero.
func normalize(spec domain.FieldSpec, mapped map[string]string, now time.Time) domain.Record {
	fields := make(domain.Fields, len(mapped))
	for _, def := range spec.Fields {
		raw, present := mapped[def.Name]
		switch def.Type {
		case domain.FieldTypeNumber:
			fields[def.Name] = domain.Number(parseNumber(raw))
		case domain.FieldTypeDate:
			if !present {
				continue
			}
			if t, ok := parseDate(raw, spec.Years); ok {
				fields[def.Name] = domain.Date(t)
			} else {
				fields[def.Name] = domain.Null()
			}
		case domain.FieldTypeTimestamp:
			if !present {
				continue
			}
			if t, ok := parseDate(raw, spec.Years); ok {
				fields[def.Name] = domain.Timestamp(t)
			} else {
				fields[def.Name] = domain.Null()
			}
		case domain.FieldTypeEnum:
			if present {
				fields[def.Name] = domain.String(strings.ToLower(raw))
			}
		case domain.FieldTypeString:
			if present {
				fields[def.Name] = domain.String(raw)
			}
		}
	}
	return domain.NewRecord(spec.Kind, fields, now)
}

func parseNumber(raw string) float64 {
	cleaned := strings.TrimSpace(raw)
	for _, prefix := range currencyPrefixes {
		if strings.HasPrefix(cleaned, prefix) {
			cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, prefix))
			break
		}
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parseDate tries DD-MM-YYYY first, then the fallback layouts. Dates outside the
// year window are rejected.
func parseDate(raw string, years domain.YearWindow) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	var (
		t  time.Time
		ok bool
	)
	if day, rest, found := strings.Cut(raw, "-"); found && len(day) >= 1 && len(day) <= 2 && isDigits(day) {
		t, ok = parseDayFirst(day, rest)
	} else {
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				t, ok = parsed, true
				break
			}
		}
	}
	if !ok || !years.Contains(t.Year()) {
		return time.Time{}, false
	}
	return t, true
}

// parseDayFirst handles "DD-MM-YYYY" with an optional " HH:MM[:SS]" suffix.
func parseDayFirst(day, rest string) (time.Time, bool) {
	datePart, clock, _ := strings.Cut(rest, " ")
	month, year, found := strings.Cut(datePart, "-")
	if !found || !isDigits(month) || !isDigits(year) || len(month) > 2 || len(year) != 4 {
		return time.Time{}, false
	}

	d, _ := strconv.Atoi(day)
	m, _ := strconv.Atoi(month)
	y, _ := strconv.Atoi(year)

	var hour, minute, second int
	if clock = strings.TrimSpace(clock); clock != "" {
		parsed, err := time.Parse("15:04:05", clock)
		if err != nil {
			if parsed, err = time.Parse("15:04", clock); err != nil {
				return time.Time{}, false
			}
		}
		hour, minute, second = parsed.Hour(), parsed.Minute(), parsed.Second()
	}

	t := time.Date(y, time.Month(m), d, hour, minute, second, 0, time.UTC)
	// time.Date normalizes overflow (31-02 becomes 03-03); reject anything that moved
	if t.Day() != d || int(t.Month()) != m || t.Year() != y {
		return time.Time{}, false
	}
	return t, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
