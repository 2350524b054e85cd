package neohub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// The hub's live_info records are loosely typed: numeric fields arrive
// as numbers or numeric-looking strings, list fields arrive as absent,
// a bare string, or a real array, and new keys appear without notice.
// The wire types below absorb that so the exported Zone/Device structs
// stay cleanly typed. The decoder favors availability over strict
// validation: a value that fails to coerce becomes the zero value, and
// validity judgement is left to the classifier.

// looseFloat decodes a JSON number or a numeric string; anything else
// becomes 0.
type looseFloat float64

func (f *looseFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = looseFloat(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if parsed, err := strconv.ParseFloat(str, 64); err == nil {
			*f = looseFloat(parsed)
		}
	}
	return nil
}

// looseString decodes a JSON string, or renders a bare number as its
// literal text. Null becomes "".
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = looseString(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = looseString(num.String())
		return nil
	}
	return fmt.Errorf("value %s is neither string nor number", data)
}

// looseBool decodes a JSON bool, a number (non-zero is true), or a
// boolean-looking string; anything else becomes false. Some hub
// firmware reports flags as 0/1 instead of booleans.
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	*b = false
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = looseBool(v)
		return nil
	}

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*b = looseBool(num != 0)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if parsed, err := strconv.ParseBool(str); err == nil {
			*b = looseBool(parsed)
		}
	}
	return nil
}

// stringList decodes absent/null as empty, a bare scalar as a
// one-element list, and an array element-by-element.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	*l = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] != '[' {
		var single looseString
		if err := single.UnmarshalJSON(data); err != nil {
			return err
		}
		*l = stringList{string(single)}
		return nil
	}

	var elements []looseString
	if err := json.Unmarshal(data, &elements); err != nil {
		return err
	}
	list := make(stringList, 0, len(elements))
	for _, element := range elements {
		list = append(list, string(element))
	}
	*l = list
	return nil
}

// wireZone mirrors Zone with wire-tolerant field types. Unknown keys
// in the raw record are dropped by encoding/json.
type wireZone struct {
	ZoneName looseString `json:"ZONE_NAME"`
	DeviceID int         `json:"DEVICE_ID"`

	HeatOn           looseBool `json:"HEAT_ON"`
	CoolOn           looseBool `json:"COOL_ON"`
	HeatMode         looseBool `json:"HEAT_MODE"`
	CoolMode         looseBool `json:"COOL_MODE"`
	Standby          looseBool `json:"STANDBY"`
	ManualOff        looseBool `json:"MANUAL_OFF"`
	TimerOn          looseBool `json:"TIMER_ON"`
	WindowOpen       looseBool `json:"WINDOW_OPEN"`
	LowBattery       looseBool `json:"LOW_BATTERY"`
	Offline          looseBool `json:"OFFLINE"`
	Holiday          looseBool `json:"HOLIDAY"`
	Away             looseBool `json:"AWAY"`
	ModeLock         looseBool `json:"MODELOCK"`
	Lock             looseBool `json:"LOCK"`
	HoldOn           looseBool `json:"HOLD_ON"`
	HoldOff          looseBool `json:"HOLD_OFF"`
	Timeclock        looseBool `json:"TIMECLOCK"`
	TemporarySetFlag looseBool `json:"TEMPORARY_SET_FLAG"`
	PrgTimer         looseBool `json:"PRG_TIMER"`
	PreheatActive    looseBool `json:"PREHEAT_ACTIVE"`
	FloorLimit       looseBool `json:"FLOOR_LIMIT"`

	ActualTemp      looseString `json:"ACTUAL_TEMP"`
	SetTemp         looseString `json:"SET_TEMP"`
	HCMode          string      `json:"HC_MODE"`
	HoldTime        string      `json:"HOLD_TIME"`
	Date            string      `json:"DATE"`
	Time            string      `json:"TIME"`
	SwitchDelayLeft string      `json:"SWITCH_DELAY_LEFT"`
	PinNumber       string      `json:"PIN_NUMBER"`
	FanSpeed        string      `json:"FAN_SPEED"`
	FanControl      string      `json:"FAN_CONTROL"`

	RelativeHumidity int `json:"RELATIVE_HUMIDITY"`
	ModulationLevel  int `json:"MODULATION_LEVEL"`
	ActiveProfile    int `json:"ACTIVE_PROFILE"`
	ActiveLevel      int `json:"ACTIVE_LEVEL"`
	WriteCount       int `json:"WRITE_COUNT"`

	CurrentFloorTemperature looseFloat `json:"CURRENT_FLOOR_TEMPERATURE"`
	HoldCool                looseFloat `json:"HOLD_COOL"`
	CoolTemp                looseFloat `json:"COOL_TEMP"`
	HoldTemp                looseFloat `json:"HOLD_TEMP"`
	PrgTemp                 looseFloat `json:"PRG_TEMP"`

	AvailableModes stringList `json:"AVAILABLE_MODES"`
	RecentTemps    stringList `json:"RECENT_TEMPS"`
}

// DecodeZone decodes one raw live-info record into a Zone. A record
// that cannot be decoded at all fails with a DecodeError carrying the
// offending record; missing optional fields never fail.
func DecodeZone(record json.RawMessage) (Zone, error) {
	var w wireZone
	if err := json.Unmarshal(record, &w); err != nil {
		return Zone{}, DecodeError{Record: record, Err: err}
	}

	zone := Zone{
		ZoneName: string(w.ZoneName),
		DeviceID: w.DeviceID,

		HeatOn:           bool(w.HeatOn),
		CoolOn:           bool(w.CoolOn),
		HeatMode:         bool(w.HeatMode),
		CoolMode:         bool(w.CoolMode),
		Standby:          bool(w.Standby),
		ManualOff:        bool(w.ManualOff),
		TimerOn:          bool(w.TimerOn),
		WindowOpen:       bool(w.WindowOpen),
		LowBattery:       bool(w.LowBattery),
		Offline:          bool(w.Offline),
		Holiday:          bool(w.Holiday),
		Away:             bool(w.Away),
		ModeLock:         bool(w.ModeLock),
		Lock:             bool(w.Lock),
		HoldOn:           bool(w.HoldOn),
		HoldOff:          bool(w.HoldOff),
		Timeclock:        bool(w.Timeclock),
		TemporarySetFlag: bool(w.TemporarySetFlag),
		PrgTimer:         bool(w.PrgTimer),
		PreheatActive:    bool(w.PreheatActive),
		FloorLimit:       bool(w.FloorLimit),

		ActualTemp:      string(w.ActualTemp),
		SetTemp:         string(w.SetTemp),
		HCMode:          w.HCMode,
		HoldTime:        w.HoldTime,
		Date:            w.Date,
		Time:            w.Time,
		SwitchDelayLeft: w.SwitchDelayLeft,
		PinNumber:       w.PinNumber,
		FanSpeed:        w.FanSpeed,
		FanControl:      w.FanControl,

		RelativeHumidity: w.RelativeHumidity,
		ModulationLevel:  w.ModulationLevel,
		ActiveProfile:    w.ActiveProfile,
		ActiveLevel:      w.ActiveLevel,
		WriteCount:       w.WriteCount,

		CurrentFloorTemperature: float64(w.CurrentFloorTemperature),
		HoldCool:                float64(w.HoldCool),
		CoolTemp:                float64(w.CoolTemp),
		HoldTemp:                float64(w.HoldTemp),
		PrgTemp:                 float64(w.PrgTemp),

		AvailableModes: w.AvailableModes,
		RecentTemps:    w.RecentTemps,
	}

	// Lists are always non-nil after decode.
	if zone.AvailableModes == nil {
		zone.AvailableModes = []string{}
	}
	if zone.RecentTemps == nil {
		zone.RecentTemps = []string{}
	}

	return zone, nil
}

// DecodeZones decodes a batch of raw records, isolating per-record
// failures: one bad record never aborts decoding of its siblings.
func DecodeZones(records []json.RawMessage) ([]Zone, []DecodeError) {
	zones := make([]Zone, 0, len(records))
	var failed []DecodeError
	for _, record := range records {
		zone, err := DecodeZone(record)
		if err != nil {
			var decodeErr DecodeError
			if !errors.As(err, &decodeErr) {
				decodeErr = DecodeError{Record: record, Err: err}
			}
			failed = append(failed, decodeErr)
			continue
		}
		zones = append(zones, zone)
	}
	return zones, failed
}

// DecodeDevice decodes one device record from the login response.
// Same unknown-key-drop / missing-field-default policy as DecodeZone.
func DecodeDevice(record json.RawMessage) (Device, error) {
	var device Device
	if err := json.Unmarshal(record, &device); err != nil {
		return Device{}, DecodeError{Record: record, Err: err}
	}
	return device, nil
}
