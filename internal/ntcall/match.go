package ntcall

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// MatchField returns a predicate that accepts a push when the value at
// pushPath equals the value at ackPath in the stored ack. Paths use gjson
// syntax. A missing value on either side never matches.
//
//	ntcall.WithMatch(ntcall.MatchField("seq", "seq"))
func MatchField(pushPath, ackPath string) Predicate {
	return func(push, ack json.RawMessage) bool {
		return equalResults(gjson.GetBytes(push, pushPath), gjson.GetBytes(ack, ackPath))
	}
}

// MatchValue returns a predicate that accepts a push when the value at
// pushPath equals want, regardless of the ack. It suits calls whose result
// is identified by a request argument, such as a uid.
func MatchValue(pushPath string, want any) Predicate {
	raw, err := json.Marshal(want)
	if err != nil {
		return func(json.RawMessage, json.RawMessage) bool { return false }
	}
	expected := gjson.ParseBytes(raw)
	return func(push, _ json.RawMessage) bool {
		return equalResults(gjson.GetBytes(push, pushPath), expected)
	}
}

func equalResults(a, b gjson.Result) bool {
	if !a.Exists() || !b.Exists() {
		return false
	}
	if a.Type != b.Type {
		return false
	}
	if a.Type == gjson.Number {
		return a.Float() == b.Float()
	}
	if a.Type == gjson.JSON {
		return a.Raw == b.Raw
	}
	return a.String() == b.String()
}
