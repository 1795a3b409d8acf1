package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

func jsonValue(v any, empty string) (driver.Value, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(buf) == "null" {
		return empty, nil
	}
	return string(buf), nil
}

func scanJSON(value interface{}, dest any) error {
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
