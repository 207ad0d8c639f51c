package optional

import (
	"encoding/json"
	"testing"
)

type patch struct {
	Title    Field[string] `json:"title"`
	ClientID Field[int64]  `json:"client_id"`
}

func TestFieldDistinguishesAbsentNullValue(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantSet      bool
		wantNull     bool
		wantClientID int64
	}{
		{name: "absent key", body: `{"title":"x"}`, wantSet: false},
		{name: "explicit null", body: `{"client_id":null}`, wantSet: true, wantNull: true},
		{name: "value", body: `{"client_id":7}`, wantSet: true, wantClientID: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p patch
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if p.ClientID.Set() != tt.wantSet {
				t.Errorf("Set() = %v, want %v", p.ClientID.Set(), tt.wantSet)
			}
			if p.ClientID.IsNull() != tt.wantNull {
				t.Errorf("IsNull() = %v, want %v", p.ClientID.IsNull(), tt.wantNull)
			}
			got, ok := p.ClientID.Value()
			if ok && got != tt.wantClientID {
				t.Errorf("Value() = %d, want %d", got, tt.wantClientID)
			}
			if ok == (tt.wantNull || !tt.wantSet) {
				t.Errorf("Value() ok = %v for set=%v null=%v", ok, tt.wantSet, tt.wantNull)
			}
		})
	}
}

func TestFieldRejectsWrongType(t *testing.T) {
	var p patch
	if err := json.Unmarshal([]byte(`{"client_id":"seven"}`), &p); err == nil {
		t.Fatal("expected error for string client_id, got nil")
	}
}

func TestPtr(t *testing.T) {
	if Null[string]().Ptr() != nil {
		t.Error("Null().Ptr() should be nil")
	}
	p := Of("Main St").Ptr()
	if p == nil || *p != "Main St" {
		t.Errorf("Of().Ptr() = %v, want pointer to %q", p, "Main St")
	}
}
