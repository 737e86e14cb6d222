package attendance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// QRPayload is the structured content of a scholar duty QR code.
// Every field is optional.
type QRPayload struct {
	StudentID   string `json:"studentId,omitempty"`
	StudentName string `json:"studentName,omitempty"`
	DutyType    string `json:"dutyType,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ValidationError is returned when a raw frame does not decode as a QRPayload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid qr payload: " + e.Reason
	}
	return fmt.Sprintf("invalid qr payload: %s %s", e.Field, e.Reason)
}

var payloadFields = map[string]func(*QRPayload, string){
	"studentId":   func(p *QRPayload, v string) { p.StudentID = v },
	"studentName": func(p *QRPayload, v string) { p.StudentName = v },
	"dutyType":    func(p *QRPayload, v string) { p.DutyType = v },
	"location":    func(p *QRPayload, v string) { p.Location = v },
}

// ParseQRPayload decodes a raw frame. The frame must be a JSON object whose
// known fields, when present, are strings or numbers. Numbers keep their
// literal text, so a printed id like 20210001 reads as "20210001". Unknown
// fields are ignored.
func ParseQRPayload(raw string) (QRPayload, error) {
	var p QRPayload

	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return p, &ValidationError{Reason: "empty frame"}
	}
	if data[0] != '{' {
		return p, &ValidationError{Reason: "not a json object"}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return p, &ValidationError{Reason: "malformed json"}
	}

	for name, set := range payloadFields {
		v, ok := fields[name]
		if !ok || string(v) == "null" {
			continue
		}
		s, ok := fieldText(v)
		if !ok {
			return QRPayload{}, &ValidationError{Field: name, Reason: "must be a string or number"}
		}
		set(&p, strings.TrimSpace(s))
	}

	return p, nil
}

func fieldText(v json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String(), true
	}
	return "", false
}
