// Package ingest reads parent-pair records from JSON input files.
//
// Two layouts are accepted. The flat layout is a list of objects keyed by
// "padre"/"madre" (or "father"/"mother") with optional "rh_padre"/"rh_madre"
// ("father_rh"/"mother_rh"):
//
//	[{"padre": "A", "madre": "B", "rh_padre": "+"}]
//
// The nested layout is an object holding a "parents" list:
//
//	{"parents": [{"father": {"gs": "A", "rh": "+"}, "mother": {"gs": 0, "rh": "-"}}]}
//
// Blood-group values are returned raw. Validation happens per record in the
// batch analyzer so that one bad value never hides its siblings.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const parentsKey = "parents"

var (
	flatFatherKeys   = []string{"padre", "father"}
	flatMotherKeys   = []string{"madre", "mother"}
	flatFatherRhKeys = []string{"rh_padre", "father_rh"}
	flatMotherRhKeys = []string{"rh_madre", "mother_rh"}
)

// RawRecord is one parent pair as read from a file. Err is set when the
// record itself is malformed; the other fields are then best effort.
type RawRecord struct {
	Index    int // 1-based position in the file
	Father   interface{}
	Mother   interface{}
	FatherRh interface{}
	MotherRh interface{}
	Err      error
}

// FormatError reports input that does not follow either layout. Index is
// the 1-based record number, or 0 when the whole document is malformed.
type FormatError struct {
	Index   int
	Message string
}

// Error implements the error interface
func (e *FormatError) Error() string {
	if e.Index == 0 {
		return e.Message
	}
	return fmt.Sprintf("record #%d: %s", e.Index, e.Message)
}

// ReadFile reads all records of the JSON file at path.
func ReadFile(path string) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Decode reads all records from r.
func Decode(r io.Reader) ([]RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	switch v := doc.(type) {
	case map[string]interface{}:
		parents, ok := v[parentsKey]
		if !ok {
			return nil, &FormatError{Message: "input must be a list or an object with a 'parents' key"}
		}
		list, ok := parents.([]interface{})
		if !ok {
			return nil, &FormatError{Message: "the 'parents' key must hold a list of records"}
		}
		return decodeNested(list), nil
	case []interface{}:
		return decodeFlat(v), nil
	default:
		return nil, &FormatError{Message: "input must be a list or an object with a 'parents' key"}
	}
}

func decodeNested(items []interface{}) []RawRecord {
	records := make([]RawRecord, 0, len(items))
	for i, item := range items {
		rec := RawRecord{Index: i + 1}

		obj, ok := item.(map[string]interface{})
		if !ok {
			rec.Err = &FormatError{Index: rec.Index, Message: "record must be an object with 'father' and 'mother'"}
			records = append(records, rec)
			continue
		}

		rec.Father, rec.FatherRh = parentFields(obj["father"])
		rec.Mother, rec.MotherRh = parentFields(obj["mother"])
		records = append(records, rec)
	}
	return records
}

// parentFields extracts the blood group and Rh of a nested parent entry. A
// bare value is taken as the blood group itself.
func parentFields(v interface{}) (gs, rh interface{}) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return p["gs"], p["rh"]
	default:
		return p, nil
	}
}

func decodeFlat(items []interface{}) []RawRecord {
	records := make([]RawRecord, 0, len(items))
	for i, item := range items {
		rec := RawRecord{Index: i + 1}

		obj, ok := item.(map[string]interface{})
		if !ok {
			rec.Err = &FormatError{Index: rec.Index, Message: "record must be an object with 'padre' and 'madre'"}
			records = append(records, rec)
			continue
		}

		father, hasFather := lookup(obj, flatFatherKeys)
		mother, hasMother := lookup(obj, flatMotherKeys)
		rec.Father, rec.Mother = father, mother
		rec.FatherRh, _ = lookup(obj, flatFatherRhKeys)
		rec.MotherRh, _ = lookup(obj, flatMotherRhKeys)

		if !hasFather || !hasMother {
			rec.Err = &FormatError{Index: rec.Index, Message: "record must have 'padre' and 'madre' keys"}
		}
		records = append(records, rec)
	}
	return records
}

func lookup(obj map[string]interface{}, keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}
