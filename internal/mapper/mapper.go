// Package mapper turns raw search API items into jobs-table rows.
package mapper

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobsync/internal/model"
)

// postedAtLayouts are tried in order. The API sends RFC 3339 with a literal
// "Z"; the looser forms are accepted and read as UTC.
var postedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// MapItem converts one raw item into a JobRecord. It returns false when the
// item has no usable job_id. Missing or mistyped fields become NULL/empty
// rather than errors.
func MapItem(raw model.RawJobItem) (model.JobRecord, bool) {
	if flag(raw["job_id"]) == 0 {
		return model.JobRecord{}, false
	}
	jobID, _ := stringValue(raw["job_id"])

	rec := model.JobRecord{
		Job: model.JobPosting{
			JobID:           jobID,
			Title:           stringField(raw, "job_title"),
			EmployerName:    stringField(raw, "employer_name"),
			EmployerLogo:    stringField(raw, "employer_logo"),
			EmployerWebsite: stringField(raw, "employer_website"),
			Publisher:       stringField(raw, "job_publisher"),
			EmploymentType:  stringField(raw, "job_employment_type"),
			ApplyLink:       stringField(raw, "job_apply_link"),
			IsRemote:        flag(raw["job_is_remote"]),
			PostedAt:        ParsePostedAt(raw["job_posted_at_datetime_utc"]),
			Location:        stringField(raw, "job_location"),
			City:            stringField(raw, "job_city"),
			State:           stringField(raw, "job_state"),
			Country:         stringField(raw, "job_country"),
			Latitude:        floatField(raw, "job_latitude"),
			Longitude:       floatField(raw, "job_longitude"),
			Description:     stringField(raw, "job_description"),
			GoogleLink:      stringField(raw, "job_google_link"),
			MinSalary:       floatField(raw, "job_min_salary"),
			MaxSalary:       floatField(raw, "job_max_salary"),
			SalaryPeriod:    stringField(raw, "job_salary_period"),
			OnetSOC:         stringField(raw, "job_onet_soc"),
			OnetJobZone:     stringField(raw, "job_onet_job_zone"),
		},
	}

	if benefits, ok := raw["job_benefits"].([]any); ok {
		for _, b := range benefits {
			rec.Benefits = append(rec.Benefits, model.Benefit{JobID: jobID, Benefit: optString(b)})
		}
	}

	if options, ok := raw["job_apply_options"].([]any); ok {
		for _, o := range options {
			opt, ok := o.(map[string]any)
			if !ok {
				continue
			}
			rec.ApplyOptions = append(rec.ApplyOptions, model.ApplyOption{
				JobID:     jobID,
				Publisher: stringField(opt, "publisher"),
				ApplyLink: stringField(opt, "apply_link"),
				IsDirect:  flag(opt["is_direct"]),
			})
		}
	}

	if highlights, ok := raw["job_highlights"].(map[string]any); ok {
		sections := make([]string, 0, len(highlights))
		for section := range highlights {
			sections = append(sections, section)
		}
		sort.Strings(sections)

		for _, section := range sections {
			items, ok := highlights[section].([]any)
			if !ok {
				continue
			}
			for _, item := range items {
				rec.Highlights = append(rec.Highlights, model.Highlight{
					JobID:   jobID,
					Type:    section,
					Content: optString(item),
				})
			}
		}
	}

	return rec, true
}

// ParsePostedAt parses job_posted_at_datetime_utc. Anything that is not a
// recognizable timestamp string yields nil.
func ParsePostedAt(v any) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range postedAtLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func stringField(m map[string]any, key string) *string {
	return optString(m[key])
}

func optString(v any) *string {
	s, ok := stringValue(v)
	if !ok {
		return nil
	}
	return &s
}

func floatField(m map[string]any, key string) *float64 {
	switch v := m[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

// stringValue renders scalars as text. JSON numbers that are whole are
// written without a fractional part so "4" and 4 map to the same value.
func stringValue(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprint(v), true
	}
}

// flag normalizes a boolean-like value to 0 or 1.
func flag(v any) int {
	switch v := v.(type) {
	case bool:
		if v {
			return 1
		}
	case float64:
		if v != 0 {
			return 1
		}
	case int:
		if v != 0 {
			return 1
		}
	case string:
		if v != "" {
			return 1
		}
	case []any:
		if len(v) > 0 {
			return 1
		}
	case map[string]any:
		if len(v) > 0 {
			return 1
		}
	}
	return 0
}
