package ntcall

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// classifyAck interprets the first-phase reply of a two-phase call.
//
// The host's ack shapes are heterogeneous. An absent payload or any bare
// number means the call was accepted, as does an object whose "result" is
// the number 0. Everything else is a refusal, including null, strings,
// booleans, arrays and objects with a missing or non-zero result. A refusal
// carries the object's "errMsg" when there is one.
func classifyAck(payload json.RawMessage) (accepted bool, errMsg string) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return true, ""
	}
	if !gjson.ValidBytes(trimmed) {
		return false, ""
	}

	res := gjson.ParseBytes(trimmed)
	switch {
	case res.Type == gjson.Number:
		return true, ""
	case res.IsObject():
		if code := res.Get("result"); code.Type == gjson.Number && code.Float() == 0 {
			return true, ""
		}
		return false, res.Get("errMsg").String()
	default:
		return false, ""
	}
}
