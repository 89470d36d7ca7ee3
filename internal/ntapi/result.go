package ntapi

import (
	"context"
	"encoding/json"

	"github.com/Steins-Lab/LLOneBot/internal/errors"
	"github.com/Steins-Lab/LLOneBot/internal/ntcall"
)

// GeneralResult is the common reply shape of host methods.
type GeneralResult struct {
	Result int    `json:"result"`
	ErrMsg string `json:"errMsg"`
}

// OK reports whether the host accepted the operation.
func (r GeneralResult) OK() bool { return r.Result == 0 }

// err turns a non-zero result into a host rejection for method.
func (r GeneralResult) err(method string) error {
	if r.OK() {
		return nil
	}
	return errors.NewCallError(errors.KindHostRejected, method).WithHostMessage(r.ErrMsg)
}

// invokeGeneral runs a single-phase call whose reply is a GeneralResult.
func invokeGeneral(ctx context.Context, inv ntcall.Invoker, method string, args []any, opts ...ntcall.CallOption) error {
	res, err := ntcall.InvokeAs[GeneralResult](ctx, inv, method, args, opts...)
	if err != nil {
		return err
	}
	return res.err(method)
}

// decodePush unmarshals a push payload for method.
func decodePush[T any](method string, raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.Wrapf(err, "decode %s push", method)
	}
	return out, nil
}
