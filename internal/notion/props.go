package notion

import (
	"encoding/json"
	"strconv"
	"strings"
)

// propertyValue is the wire shape of one page property value, covering the
// types the CLI can display.
type propertyValue struct {
	Type        string        `json:"type"`
	Title       []textSpan    `json:"title"`
	RichText    []textSpan    `json:"rich_text"`
	Number      *float64      `json:"number"`
	Select      *namedValue   `json:"select"`
	MultiSelect []namedValue  `json:"multi_select"`
	Date        *dateValue    `json:"date"`
	Checkbox    *bool         `json:"checkbox"`
	URL         *string       `json:"url"`
	Email       *string       `json:"email"`
	PhoneNumber *string       `json:"phone_number"`
	People      []namedValue  `json:"people"`
	Files       []fileValue   `json:"files"`
	Status      *namedValue   `json:"status"`
}

type namedValue struct {
	Name string `json:"name"`
}

type dateValue struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type fileValue struct {
	Name string `json:"name"`
}

// ExtractValue renders a raw page property value as a plain display string.
func ExtractValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v propertyValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}

	switch ParsePropertyType(v.Type) {
	case TypeTitle:
		return joinSpans(v.Title)
	case TypeRichText:
		return joinSpans(v.RichText)
	case TypeNumber:
		if v.Number == nil {
			return ""
		}
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case TypeSelect:
		if v.Select == nil {
			return ""
		}
		return v.Select.Name
	case TypeMultiSelect:
		return joinNames(v.MultiSelect)
	case TypeDate:
		if v.Date == nil {
			return ""
		}
		if v.Date.End != "" {
			return v.Date.Start + " → " + v.Date.End
		}
		return v.Date.Start
	case TypeCheckbox:
		if v.Checkbox != nil && *v.Checkbox {
			return "✓"
		}
		return "✗"
	case TypeStatus:
		if v.Status == nil {
			return ""
		}
		return v.Status.Name
	default:
	}

	switch {
	case v.URL != nil:
		return *v.URL
	case v.Email != nil:
		return *v.Email
	case v.PhoneNumber != nil:
		return *v.PhoneNumber
	case len(v.People) > 0:
		return joinNames(v.People)
	case len(v.Files) > 0:
		if len(v.Files) == 1 {
			return v.Files[0].Name
		}
		return v.Files[0].Name + " (+" + strconv.Itoa(len(v.Files)-1) + " more)"
	}
	return ""
}

func joinSpans(spans []textSpan) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.PlainText)
	}
	return b.String()
}

func joinNames(values []namedValue) string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, v.Name)
	}
	return strings.Join(names, ", ")
}

// BuildProperties converts simple field values into the property payloads the
// pages endpoints expect, guided by the database schema. Unknown fields and
// values that cannot be converted for their type are skipped.
func BuildProperties(fields map[string]string, schema *Schema) map[string]any {
	props := make(map[string]any, len(fields))

	for field, value := range fields {
		prop, ok := schema.Resolve(field)
		if !ok {
			continue
		}

		switch prop.Type {
		case TypeTitle:
			props[prop.Name] = map[string]any{
				"title": []any{map[string]any{"text": map[string]any{"content": value}}},
			}
		case TypeRichText, TypeOther:
			props[prop.Name] = map[string]any{
				"rich_text": []any{map[string]any{"text": map[string]any{"content": value}}},
			}
		case TypeNumber:
			num, err := strconv.ParseFloat(value, 64)
			if err != nil {
				continue
			}
			props[prop.Name] = map[string]any{"number": num}
		case TypeSelect:
			props[prop.Name] = map[string]any{"select": map[string]any{"name": value}}
		case TypeMultiSelect:
			var names []any
			for _, v := range strings.Split(value, ",") {
				names = append(names, map[string]any{"name": strings.TrimSpace(v)})
			}
			props[prop.Name] = map[string]any{"multi_select": names}
		case TypeDate:
			props[prop.Name] = map[string]any{"date": map[string]any{"start": value}}
		case TypeCheckbox:
			props[prop.Name] = map[string]any{"checkbox": Truthy(value)}
		case TypeStatus:
			props[prop.Name] = map[string]any{"status": map[string]any{"name": value}}
		}
	}

	return props
}

// truthyValues are the strings read as a checked checkbox; everything else is
// false. The check glyph is matched as a plain string like the rest.
var truthyValues = map[string]bool{
	"true":    true,
	"yes":     true,
	"1":       true,
	"✓":       true,
	"checked": true,
}

// Truthy reports whether value reads as boolean true, ignoring case.
func Truthy(value string) bool {
	return truthyValues[strings.ToLower(value)]
}
