package common

import (
	"testing"

	"github.com/gosnmp/gosnmp"
)

func TestIndexedOID(t *testing.T) {
	tests := []struct {
		name   string
		column string
		index  []int
		want   string
	}{
		{"single index", "1.3.6.1.2.1.2.2.1.8", []int{5}, "1.3.6.1.2.1.2.2.1.8.5"},
		{"leading dot dropped", ".1.3.6.1.2.1.2.2.1.8", []int{5}, "1.3.6.1.2.1.2.2.1.8.5"},
		{"group and port", "1.3.6.1.2.1.105.1.1.1.6", []int{1, 12}, "1.3.6.1.2.1.105.1.1.1.6.1.12"},
		{"no index", "1.3.6.1.2.1.1.1.0", nil, "1.3.6.1.2.1.1.1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IndexedOID(tt.column, tt.index...); got != tt.want {
				t.Errorf("IndexedOID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSNMPResult(t *testing.T) {
	tests := []struct {
		name      string
		results   map[string]interface{}
		oid       string
		wantValue interface{}
		wantFound bool
	}{
		{
			name:      "nil results",
			results:   nil,
			oid:       "1.3.6.1",
			wantValue: nil,
			wantFound: false,
		},
		{
			name:      "exact match without dot",
			results:   map[string]interface{}{"1.3.6.1": "value"},
			oid:       "1.3.6.1",
			wantValue: "value",
			wantFound: true,
		},
		{
			name:      "result has dot, oid without",
			results:   map[string]interface{}{".1.3.6.1": "value"},
			oid:       "1.3.6.1",
			wantValue: "value",
			wantFound: true,
		},
		{
			name:      "result without dot, oid has dot",
			results:   map[string]interface{}{"1.3.6.1": "value"},
			oid:       ".1.3.6.1",
			wantValue: "value",
			wantFound: true,
		},
		{
			name:      "not found",
			results:   map[string]interface{}{"1.3.6.1": "value"},
			oid:       "1.3.6.2",
			wantValue: nil,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotValue, gotFound := GetSNMPResult(tt.results, tt.oid)
			if gotValue != tt.wantValue {
				t.Errorf("GetSNMPResult() value = %v, want %v", gotValue, tt.wantValue)
			}
			if gotFound != tt.wantFound {
				t.Errorf("GetSNMPResult() found = %v, want %v", gotFound, tt.wantFound)
			}
		})
	}
}

func TestPDUValues(t *testing.T) {
	pdus := []gosnmp.SnmpPDU{
		{Name: ".1.3.6.1.2.1.2.2.1.8.1", Type: gosnmp.Integer, Value: 1},
		{Name: ".1.3.6.1.2.1.1.5.0", Type: gosnmp.OctetString, Value: []byte("sw1")},
		{Name: ".1.3.6.1.2.1.31.1.1.1.15.1", Type: gosnmp.Gauge32, Value: uint(1000)},
		{Name: ".1.3.6.1.2.1.10.7.2.1.19.1", Type: gosnmp.NoSuchInstance},
	}

	got := PDUValues(pdus)
	if len(got) != 3 {
		t.Fatalf("PDUValues() returned %d values, want 3", len(got))
	}
	if got[".1.3.6.1.2.1.1.5.0"] != "sw1" {
		t.Errorf("PDUValues() sysName = %v, want sw1", got[".1.3.6.1.2.1.1.5.0"])
	}
	if _, ok := got[".1.3.6.1.2.1.10.7.2.1.19.1"]; ok {
		t.Errorf("PDUValues() kept a NoSuchInstance varbind")
	}
}

func TestParseIntSNMPValue(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   int64
		wantOK bool
	}{
		{"nil", nil, 0, false},
		{"int", 3, 3, true},
		{"uint gauge", uint(1000), 1000, true},
		{"uint32", uint32(42), 42, true},
		{"int64", int64(-1), -1, true},
		{"string", "3", 0, false},
		{"bytes", []byte{3}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseIntSNMPValue(tt.value)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseIntSNMPValue() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseStringSNMPValue(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   string
		wantOK bool
	}{
		{"nil", nil, "", false},
		{"string", "sw1", "sw1", true},
		{"bytes", []byte("sw1"), "sw1", true},
		{"int", 1, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseStringSNMPValue(tt.value)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseStringSNMPValue() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
