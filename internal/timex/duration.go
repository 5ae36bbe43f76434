// Package timex holds time helpers shared by the config loaders.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Duration is a time.Duration that unmarshals from either a Go duration
// string ("3s", "1m30s") or an integer number of nanoseconds. YAML input is
// accepted in the same two forms.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var v any
	if err := unmarshal(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case int:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	case nil:
		d.Duration = 0
	default:
		return errors.New("invalid duration")
	}
	return nil
}
