package ntcall

import (
	"encoding/json"
	"testing"
)

func TestClassifyAck(t *testing.T) {
	tests := []struct {
		name     string
		payload  json.RawMessage
		accepted bool
		errMsg   string
	}{
		{"absent", nil, true, ""},
		{"empty", json.RawMessage(""), true, ""},
		{"whitespace", json.RawMessage("  "), true, ""},
		{"zero", json.RawMessage(`0`), true, ""},
		{"other number", json.RawMessage(`42`), true, ""},
		{"negative number", json.RawMessage(`-1`), true, ""},
		{"result zero", json.RawMessage(`{"result":0,"errMsg":""}`), true, ""},
		{"result zero float", json.RawMessage(`{"result":0.0}`), true, ""},
		{"result nonzero", json.RawMessage(`{"result":1,"errMsg":"x"}`), false, "x"},
		{"result as string", json.RawMessage(`{"result":"0"}`), false, ""},
		{"missing result", json.RawMessage(`{"seq":7}`), false, ""},
		{"null", json.RawMessage(`null`), false, ""},
		{"string", json.RawMessage(`"ok"`), false, ""},
		{"bool", json.RawMessage(`true`), false, ""},
		{"array", json.RawMessage(`[0]`), false, ""},
		{"invalid json", json.RawMessage(`{`), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, msg := classifyAck(tt.payload)
			if accepted != tt.accepted {
				t.Errorf("accepted = %v, want %v", accepted, tt.accepted)
			}
			if msg != tt.errMsg {
				t.Errorf("errMsg = %q, want %q", msg, tt.errMsg)
			}
		})
	}
}
