package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValidateShape checks that payload looks like StuSave application state:
// an object with a spendings array and a numeric budget.
func ValidateShape(payload json.RawMessage) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil || top == nil {
		return NewError(KindInvalidDataShape, fmt.Errorf("payload is not a JSON object"))
	}

	spendings, ok := top["spendings"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(spendings), []byte("[")) {
		return NewError(KindInvalidDataShape, fmt.Errorf("spendings must be an array"))
	}
	var list []json.RawMessage
	if err := json.Unmarshal(spendings, &list); err != nil {
		return NewError(KindInvalidDataShape, fmt.Errorf("spendings: %w", err))
	}

	budget, ok := top["budget"]
	if !ok {
		return NewError(KindInvalidDataShape, fmt.Errorf("budget is missing"))
	}
	var n float64
	if err := json.Unmarshal(budget, &n); err != nil || bytes.Equal(bytes.TrimSpace(budget), []byte("null")) {
		return NewError(KindInvalidDataShape, fmt.Errorf("budget must be a number"))
	}
	return nil
}
