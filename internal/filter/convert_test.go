package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vertexcover-io/notion-cli/internal/notion"
)

func testSchema() *notion.Schema {
	return notion.NewSchema(
		notion.Property{Name: "Name", Type: notion.TypeTitle},
		notion.Property{Name: "Description", Type: notion.TypeRichText},
		notion.Property{Name: "Priority", Type: notion.TypeNumber},
		notion.Property{Name: "Status", Type: notion.TypeStatus, Options: []string{"Todo", "In Progress", "Done"}},
		notion.Property{Name: "Category", Type: notion.TypeSelect, Options: []string{"Work", "Home"}},
		notion.Property{Name: "Tags", Type: notion.TypeMultiSelect, Options: []string{"urgent", "later"}},
		notion.Property{Name: "Due", Type: notion.TypeDate},
		notion.Property{Name: "Done", Type: notion.TypeCheckbox},
		notion.Property{Name: "Link", Type: notion.TypeOther},
	)
}

func mustConvert(t *testing.T, expr string) notion.Filter {
	t.Helper()
	node, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", expr, err)
	}
	f, err := NewConverter(testSchema()).Convert(node)
	if err != nil {
		t.Fatalf("Convert(%q) returned error: %v", expr, err)
	}
	return f
}

func convertErr(t *testing.T, expr string) error {
	t.Helper()
	node, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", expr, err)
	}
	_, err = NewConverter(testSchema()).Convert(node)
	if err == nil {
		t.Fatalf("Convert(%q) succeeded, expected error", expr)
	}
	return err
}

func TestConvert_NilNode(t *testing.T) {
	f, err := NewConverter(testSchema()).Convert(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != nil {
		t.Errorf("expected nil filter, got %v", f)
	}
}

func TestConvert_TextConditions(t *testing.T) {
	tests := []struct {
		expr     string
		expected notion.Filter
	}{
		{"Name=Report", notion.Filter{"property": "Name", "title": notion.Filter{"equals": "Report"}}},
		{"Name!=Report", notion.Filter{"property": "Name", "title": notion.Filter{"does_not_equal": "Report"}}},
		{"Name~Rep", notion.Filter{"property": "Name", "title": notion.Filter{"contains": "Rep"}}},
		{"Description !~ draft", notion.Filter{"property": "Description", "rich_text": notion.Filter{"does_not_contain": "draft"}}},
		// Unknown types fall back to rich_text semantics.
		{"Link ~ example.com", notion.Filter{"property": "Link", "rich_text": notion.Filter{"contains": "example.com"}}},
	}

	for _, tt := range tests {
		if got := mustConvert(t, tt.expr); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("Convert(%q) = %v, expected %v", tt.expr, got, tt.expected)
		}
	}
}

func TestConvert_NumberConditions(t *testing.T) {
	tests := []struct {
		expr      string
		predicate string
	}{
		{"Priority=3", "equals"},
		{"Priority!=3", "does_not_equal"},
		{"Priority>3", "greater_than"},
		{"Priority<3", "less_than"},
		{"Priority>=3", "greater_than_or_equal_to"},
		{"Priority<=3", "less_than_or_equal_to"},
	}

	for _, tt := range tests {
		expected := notion.Filter{"property": "Priority", "number": notion.Filter{tt.predicate: 3.0}}
		if got := mustConvert(t, tt.expr); !reflect.DeepEqual(got, expected) {
			t.Errorf("Convert(%q) = %v, expected %v", tt.expr, got, expected)
		}
	}
}

func TestConvert_NumberInvalidValue(t *testing.T) {
	err := convertErr(t, "Priority=high")
	var invalid *InvalidValueError
	if !errors.As(err, &invalid) {
		t.Errorf("expected InvalidValueError, got %v", err)
	}
}

func TestConvert_NumberContainsUnsupported(t *testing.T) {
	err := convertErr(t, "Priority~3")
	var unsupported *UnsupportedOperatorError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedOperatorError, got %v", err)
	}
	if unsupported.Type != notion.TypeNumber || unsupported.Operator != OpContains {
		t.Errorf("got %+v", unsupported)
	}
}

func TestConvert_SelectConditions(t *testing.T) {
	// "contains" degrades to equality for single-option types.
	expected := notion.Filter{"property": "Category", "select": notion.Filter{"equals": "Work"}}
	if got := mustConvert(t, "Category~Work"); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}

	// Comparison operators have no meaning for selects.
	err := convertErr(t, "Category > Work")
	var unsupported *UnsupportedOperatorError
	if !errors.As(err, &unsupported) {
		t.Errorf("expected UnsupportedOperatorError, got %v", err)
	}
}

func TestConvert_StatusInExpansion(t *testing.T) {
	expected := notion.Or(
		notion.Filter{"property": "Status", "status": notion.Filter{"equals": "Todo"}},
		notion.Filter{"property": "Status", "status": notion.Filter{"equals": "Done"}},
	)
	if got := mustConvert(t, "Status in 'Todo,Done'"); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}

	// A single value collapses to the plain leaf form.
	single := notion.Filter{"property": "Status", "status": notion.Filter{"equals": "Done"}}
	if got := mustConvert(t, "Status in Done"); !reflect.DeepEqual(got, single) {
		t.Errorf("got %v, expected %v", got, single)
	}
}

func TestConvert_MultiSelectExpansion(t *testing.T) {
	expected := notion.Or(
		notion.Filter{"property": "Tags", "multi_select": notion.Filter{"contains": "x"}},
		notion.Filter{"property": "Tags", "multi_select": notion.Filter{"contains": "y"}},
		notion.Filter{"property": "Tags", "multi_select": notion.Filter{"contains": "z"}},
	)
	if got := mustConvert(t, "Tags in 'x,y,z'"); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}

	negated := notion.And(
		notion.Filter{"property": "Tags", "multi_select": notion.Filter{"does_not_contain": "x"}},
		notion.Filter{"property": "Tags", "multi_select": notion.Filter{"does_not_contain": "y"}},
	)
	if got := mustConvert(t, "Tags not in 'x,y'"); !reflect.DeepEqual(got, negated) {
		t.Errorf("got %v, expected %v", got, negated)
	}

	// Quotes around individual values are stripped.
	quoted := notion.Or(
		notion.Filter{"property": "Tags", "multi_select": notion.Filter{"contains": "a b"}},
		notion.Filter{"property": "Tags", "multi_select": notion.Filter{"contains": "c"}},
	)
	if got := mustConvert(t, `Tags in "'a b', 'c'"`); !reflect.DeepEqual(got, quoted) {
		t.Errorf("got %v, expected %v", got, quoted)
	}
}

func TestConvert_DateConditions(t *testing.T) {
	tests := []struct {
		expr      string
		predicate string
		value     string
	}{
		{"Due<2025-07-10", "before", "2025-07-10"},
		{"Due>2025-07-10", "after", "2025-07-10"},
		{"Due>=2025/07/10", "on_or_after", "2025-07-10"},
		{"Due<=07/10/2025", "on_or_before", "2025-07-10"},
		{"Due='2025-07-10 12:30:00'", "equals", "2025-07-10"},
		{"Due='2025-07-10T12:30:00'", "equals", "2025-07-10"},
		// Unrecognized values pass through for the backend to interpret.
		{"Due<today", "before", "today"},
	}

	for _, tt := range tests {
		expected := notion.Filter{"property": "Due", "date": notion.Filter{tt.predicate: tt.value}}
		if got := mustConvert(t, tt.expr); !reflect.DeepEqual(got, expected) {
			t.Errorf("Convert(%q) = %v, expected %v", tt.expr, got, expected)
		}
	}
}

func TestConvert_CheckboxConditions(t *testing.T) {
	tests := []struct {
		expr    string
		checked bool
	}{
		{"Done=true", true},
		{"Done=YES", true},
		{"Done=1", true},
		{"Done=✓", true},
		{"Done=checked", true},
		{"Done=false", false},
		{"Done=no", false},
		{"Done=anything", false},
	}

	for _, tt := range tests {
		expected := notion.Filter{"property": "Done", "checkbox": notion.Filter{"equals": tt.checked}}
		if got := mustConvert(t, tt.expr); !reflect.DeepEqual(got, expected) {
			t.Errorf("Convert(%q) = %v, expected %v", tt.expr, got, expected)
		}
	}

	err := convertErr(t, "Done > true")
	var unsupported *UnsupportedOperatorError
	if !errors.As(err, &unsupported) {
		t.Errorf("expected UnsupportedOperatorError, got %v", err)
	}
}

func TestConvert_CaseInsensitiveColumn(t *testing.T) {
	// The emitted property name is the schema's, not the user's spelling.
	expected := notion.Filter{"property": "Due", "date": notion.Filter{"before": "2025-07-10"}}
	if got := mustConvert(t, "due<2025-07-10"); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}
}

func TestConvert_UnknownProperty(t *testing.T) {
	err := convertErr(t, "missing=1")
	var unknown *UnknownPropertyError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownPropertyError, got %v", err)
	}
	if unknown.Name != "missing" {
		t.Errorf("name = %q", unknown.Name)
	}
}

func TestConvert_Groups(t *testing.T) {
	expected := notion.And(
		notion.Filter{"property": "Name", "title": notion.Filter{"equals": "Report"}},
		notion.Filter{"property": "Priority", "number": notion.Filter{"greater_than": 3.0}},
	)
	if got := mustConvert(t, "Name=Report, Priority>3"); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}

	expected = notion.Or(
		notion.Filter{"property": "Status", "status": notion.Filter{"equals": "Done"}},
		notion.Filter{"property": "Done", "checkbox": notion.Filter{"equals": true}},
	)
	if got := mustConvert(t, "OR(Status=Done, Done=true)"); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}
}

func TestConvert_NotLeafUnchanged(t *testing.T) {
	// Atomic leaf negation is a documented no-op; only composites invert.
	expected := notion.Filter{"property": "Status", "status": notion.Filter{"equals": "Done"}}
	if got := mustConvert(t, "NOT(Status=Done)"); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}
}

func TestConvert_NotAppliesDeMorgan(t *testing.T) {
	// NOT(AND(a,b)) becomes OR(NOT(a), NOT(b)).
	expected := notion.Or(
		notion.Filter{"property": "Name", "title": notion.Filter{"equals": "Report"}},
		notion.Filter{"property": "Done", "checkbox": notion.Filter{"equals": true}},
	)
	if got := mustConvert(t, "NOT(AND(Name=Report, Done=true))"); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}

	// NOT with multiple children negates their disjunction, so it becomes
	// AND of the (leaf-unchanged) children.
	expected = notion.And(
		notion.Filter{"property": "Name", "title": notion.Filter{"equals": "Report"}},
		notion.Filter{"property": "Done", "checkbox": notion.Filter{"equals": true}},
	)
	if got := mustConvert(t, "NOT(Name=Report, Done=true)"); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %v, expected %v", got, expected)
	}
}
