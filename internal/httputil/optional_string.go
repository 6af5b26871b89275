package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString distinguishes an absent JSON field from an explicit
// null, which a plain *string cannot do. PATCH handlers rely on this
// to tell "leave the column alone" apart from "clear it":
//   - Present=false: field absent, no change
//   - Present=true, Value=nil: explicit null, clear the field
//   - Present=true, Value=&s: set the field to s
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON is only invoked when the field appears in the payload,
// so its mere invocation marks the field present.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
