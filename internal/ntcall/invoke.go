package ntcall

import (
	"context"
	"encoding/json"
	"fmt"
)

// InvokeAs runs a call through inv and decodes its result into T. An empty
// result decodes to T's zero value.
func InvokeAs[T any](ctx context.Context, inv Invoker, method string, args []any, opts ...CallOption) (T, error) {
	var out T
	raw, err := inv.Invoke(ctx, method, args, opts...)
	if err != nil {
		return out, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s result: %w", method, err)
	}
	return out, nil
}
