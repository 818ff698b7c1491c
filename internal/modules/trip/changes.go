package trip

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
)

var jsonNull = []byte("null")

// ParseChanges decodes the whitelisted keys of an update payload. Unknown keys
// are dropped; a whitelisted key with the wrong JSON type is an InvalidInput.
func ParseChanges(raw map[string]json.RawMessage) (Changes, error) {
	changes := Changes{}
	for _, field := range MutableFields {
		msg, ok := raw[field]
		if !ok {
			continue
		}
		isNull := bytes.Equal(bytes.TrimSpace(msg), jsonNull)

		var (
			value any
			err   error
		)
		switch field {
		case FieldOrigin, FieldDestination:
			var v string
			err = decodeRequired(msg, isNull, &v)
			value = strings.TrimSpace(v)
		case FieldDepartureAt:
			var v time.Time
			err = decodeRequired(msg, isNull, &v)
			value = v
		case FieldSeats:
			var v int
			err = decodeRequired(msg, isNull, &v)
			value = v
		case FieldStatus:
			var v Status
			err = decodeRequired(msg, isNull, &v)
			value = v
		case FieldDescription:
			var v *string
			err = json.Unmarshal(msg, &v)
			value = v
		case FieldAreaTags:
			var v []string
			err = json.Unmarshal(msg, &v)
			value = v
		}
		if err != nil {
			return nil, apperr.InvalidInput("%s: %v", field, err)
		}
		changes[field] = value
	}
	return changes, nil
}

func decodeRequired(msg json.RawMessage, isNull bool, dst any) error {
	if isNull {
		return errNullField
	}
	return json.Unmarshal(msg, dst)
}

var errNullField = errors.New("must not be null")

// Apply returns a copy of t with changes applied; used to validate the merged record.
func (c Changes) Apply(t Trip) Trip {
	for field, v := range c {
		switch field {
		case FieldOrigin:
			t.Origin = v.(string)
		case FieldDestination:
			t.Destination = v.(string)
		case FieldDepartureAt:
			t.DepartureAt = v.(time.Time)
		case FieldSeats:
			t.SeatsAvailable = v.(int)
		case FieldStatus:
			t.Status = v.(Status)
		case FieldDescription:
			t.Description = v.(*string)
		case FieldAreaTags:
			t.AreaTags = v.([]string)
		}
	}
	return t
}
