package utils

import (
	"bytes"
	"encoding/json"
)

// OptionalUint distinguishes an absent JSON field from an explicit null.
//   - Present=false: field absent (keep current value)
//   - Present=true, Value=nil: field is null
//   - Present=true, Value=&n: field is n
type OptionalUint struct {
	Present bool
	Value   *uint
}

func (o *OptionalUint) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}
	var n uint
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	o.Value = &n
	return nil
}
