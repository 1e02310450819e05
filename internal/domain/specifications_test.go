package domain

import (
	"encoding/json"
	"testing"
)

func TestSpecifications_UnmarshalKeepsOrder(t *testing.T) {
	input := `{
		"Engine": {"Type": "1.2L Petrol", "Power": 90, "Turbo": false},
		"Dimensions": {"Length": "3655 mm"},
		"Warranty": "2 years",
		"Colors": ["Red", "Blue"]
	}`

	var specs Specifications
	if err := json.Unmarshal([]byte(input), &specs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(specs) != 3 {
		t.Fatalf("expected 3 groups, got %d: %+v", len(specs), specs)
	}
	if specs[0].Category != "Engine" || specs[1].Category != "Dimensions" || specs[2].Category != GeneralCategory {
		t.Errorf("unexpected group order: %s, %s, %s", specs[0].Category, specs[1].Category, specs[2].Category)
	}

	engine := specs[0].Items
	if len(engine) != 3 || engine[0].Name != "Type" || engine[1].Name != "Power" || engine[2].Name != "Turbo" {
		t.Errorf("unexpected engine items: %+v", engine)
	}
	if engine[1].Value != "90" {
		t.Errorf("number should be stringified, got %q", engine[1].Value)
	}
	if engine[2].Value != "false" {
		t.Errorf("bool should be stringified, got %q", engine[2].Value)
	}

	if v, ok := specs.Lookup(GeneralCategory, "Warranty"); !ok || v != "2 years" {
		t.Errorf("flat value should land in General, got %q (%v)", v, ok)
	}
	if v, _ := specs.Lookup(GeneralCategory, "Colors"); v != "Red, Blue" {
		t.Errorf("array value should be flattened, got %q", v)
	}
}

func TestSpecifications_RoundTrip(t *testing.T) {
	var specs Specifications
	specs.Add("Power", "Voltage", "230 V")
	specs.Add("Power", "Current", "10 A")
	specs.Add("", "Weight", "4 kg")
	specs.Add("Power", "Voltage", "110 V") // duplicate keeps the first value

	data, err := json.Marshal(specs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"Power":{"Voltage":"230 V","Current":"10 A"},"General":{"Weight":"4 kg"}}`
	if string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}

	var back Specifications
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again, _ := json.Marshal(back)
	if string(again) != want {
		t.Errorf("round trip = %s, want %s", again, want)
	}
}

func TestSpecifications_Null(t *testing.T) {
	var p Product
	if err := json.Unmarshal([]byte(`{"name":"X","specifications":null}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Specifications != nil {
		t.Errorf("expected nil specifications, got %+v", p.Specifications)
	}
}

func TestSpecifications_RejectsNonObject(t *testing.T) {
	var specs Specifications
	if err := json.Unmarshal([]byte(`"not an object"`), &specs); err == nil {
		t.Error("expected error for non-object specifications")
	}
}

func TestFlexString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"XR-200"`, "XR-200"},
		{`1299.99`, "1299.99"},
		{`42`, "42"},
		{`true`, "true"},
		{`null`, ""},
	}

	for _, tt := range tests {
		var f FlexString
		if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
			t.Errorf("unmarshal %s: %v", tt.input, err)
			continue
		}
		if f.String() != tt.want {
			t.Errorf("FlexString(%s) = %q, want %q", tt.input, f, tt.want)
		}
	}
}
