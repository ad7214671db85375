package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/tollgate/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"InstrumentID", id.NewInstrumentID, "inst_"},
		{"ResourceID", id.NewResourceID, "res_"},
		{"PaymentID", id.NewPaymentID, "pay_"},
		{"EventID", id.NewEventID, "evt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixResource)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixResource {
		t.Errorf("expected prefix %q, got %q", id.PrefixResource, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"InstrumentID", id.NewInstrumentID, id.ParseInstrumentID},
		{"ResourceID", id.NewResourceID, id.ParseResourceID},
		{"PaymentID", id.NewPaymentID, id.ParsePaymentID},
		{"EventID", id.NewEventID, id.ParseEventID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse %q: %v", original.String(), err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round trip mismatch: got %q, want %q", parsed.String(), original.String())
			}
		})
	}
}

func TestParseWithPrefixMismatch(t *testing.T) {
	resID := id.NewResourceID()
	if _, err := id.ParseInstrumentID(resID.String()); err == nil {
		t.Error("expected prefix mismatch error parsing resource ID as instrument ID")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []string{"", "not a typeid", "res_", "_01h2xcejqtf2nbrexx3vqjhp41"}
	for _, s := range tests {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("expected error parsing %q", s)
		}
	}
}

func TestNilID(t *testing.T) {
	var nilID id.ID
	if !nilID.IsNil() {
		t.Error("zero value should be nil")
	}
	if nilID.String() != "" {
		t.Errorf("nil ID string should be empty, got %q", nilID.String())
	}
	if nilID.Prefix() != "" {
		t.Errorf("nil ID prefix should be empty, got %q", nilID.Prefix())
	}
}

func TestTextMarshalling(t *testing.T) {
	original := id.NewPaymentID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded id.ID
	if err := decoded.UnmarshalText(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.String() != original.String() {
		t.Errorf("got %q, want %q", decoded.String(), original.String())
	}
}

func TestSQLRoundTrip(t *testing.T) {
	original := id.NewInstrumentID()

	v, err := original.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("got %q, want %q", scanned.String(), original.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if !fromNil.IsNil() {
		t.Error("scanning nil should produce the Nil ID")
	}
}
