package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// datapointJSON is the wire shape of a datapoint. The type tag selects the
// variant; timestamps are ISO-8601. Secondary is emitted only for blood
// pressure, where it carries the diastolic reading.
type datapointJSON struct {
	Type      string    `json:"type"`
	PersonID  uuid.UUID `json:"person_id"`
	Taken     time.Time `json:"taken"`
	Value     float64   `json:"value"`
	Secondary *float64  `json:"secondary,omitempty"`
	Unit      string    `json:"unit"`
	Note      string    `json:"note,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (d Datapoint) MarshalJSON() ([]byte, error) {
	out := datapointJSON{
		Type:     string(d.Type),
		PersonID: d.PersonID,
		Taken:    d.Taken.UTC(),
		Value:    d.Value,
		Unit:     string(d.Unit),
		Note:     d.Note,
	}
	if d.Type == TypeBloodPressure {
		secondary := d.Secondary
		out.Secondary = &secondary
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. It rejects unknown type tags
// with ErrUnknownDatapointType and runs the variant constructor, so any
// object that decodes successfully is a valid value object.
func (d *Datapoint) UnmarshalJSON(data []byte) error {
	var in datapointJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decoding datapoint: %w", err)
	}

	t, err := ParseDatapointType(in.Type)
	if err != nil {
		return err
	}
	unit, err := ParseUnit(in.Unit)
	if err != nil {
		return err
	}

	var secondary float64
	if in.Secondary != nil {
		secondary = *in.Secondary
	}

	dp, err := NewDatapoint(in.PersonID, t, in.Taken, in.Value, secondary, unit, in.Note)
	if err != nil {
		return err
	}
	*d = dp
	return nil
}
