package common

import (
	"fmt"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// IndexedOID appends table indexes to a column OID
func IndexedOID(column string, index ...int) string {
	var b strings.Builder
	b.WriteString(strings.TrimPrefix(column, "."))
	for _, i := range index {
		fmt.Fprintf(&b, ".%d", i)
	}
	return b.String()
}

// PDUValues flattens a GET response into an OID keyed map. Octet strings
// become Go strings, everything else is kept as gosnmp decoded it.
func PDUValues(pdus []gosnmp.SnmpPDU) map[string]interface{} {
	results := make(map[string]interface{}, len(pdus))
	for _, pdu := range pdus {
		switch pdu.Type {
		case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
			continue
		case gosnmp.OctetString:
			if b, ok := pdu.Value.([]byte); ok {
				results[pdu.Name] = string(b)
				continue
			}
		}
		results[pdu.Name] = pdu.Value
	}
	return results
}

// GetSNMPResult looks up an OID in SNMP results, handling the leading dot issue.
// gosnmp returns OIDs with a leading dot (e.g., ".1.3.6.1..."), but OID constants
// typically don't have the leading dot. This function tries both formats.
func GetSNMPResult(results map[string]interface{}, oid string) (interface{}, bool) {
	if results == nil {
		return nil, false
	}
	bare := strings.TrimPrefix(oid, ".")
	if val, ok := results["."+bare]; ok {
		return val, true
	}
	val, ok := results[bare]
	return val, ok
}

// ParseIntSNMPValue extracts an int64 from the integer types gosnmp
// decodes INTEGER, Gauge32 and Counter values into.
func ParseIntSNMPValue(value interface{}) (int64, bool) {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return gosnmp.ToBigInt(value).Int64(), true
	default:
		return 0, false
	}
}

// ParseStringSNMPValue extracts a string from SNMP result.
// Handles both string and []byte types.
func ParseStringSNMPValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
