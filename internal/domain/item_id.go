package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ItemID is an opaque catalog identifier. The shop API hands out numeric ids,
// older stored carts may carry them as strings; both decode to the same value.
type ItemID string

func (id ItemID) String() string {
	return string(id)
}

func (id ItemID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("json.Unmarshal: %w", err)
		}
		*id = ItemID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id[%s] is neither string nor number: %w", data, err)
	}
	*id = ItemID(n.String())
	return nil
}
