package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID はJSON上で数値・文字列のどちらでも表現されるIDを文字列として読み込む。
type ID string

// UnmarshalJSON は数値または文字列のIDを読み込む。
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// String はIDを文字列で返す。
func (id ID) String() string {
	return string(id)
}
