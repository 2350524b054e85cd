package neohub

// Device identifies one physical hub unit as reported by the login
// response. Fields the server omits stay at their zero value.
type Device struct {
	Address    string `json:"address"`
	DeviceID   string `json:"deviceid"`
	DeviceName string `json:"devicename"`
	HubType    int    `json:"hub_type"`
	Online     bool   `json:"online"`
	Type       string `json:"type"`
	Version    int    `json:"version"`
	ShareName  string `json:"share_name"`
	ShareID    string `json:"share_id"`
	TempFormat string `json:"tempformat"`
	Timezone   string `json:"timezone"`
	Away       bool   `json:"away"`
	Holiday    bool   `json:"holiday"`
	HolidayEnd string `json:"holidayend"`
}

// Zone is one climate-control zone or socket channel from a device's
// live-info snapshot. It is a value snapshot of a single server
// response; each FetchZoneData call produces a fresh set.
//
// ActualTemp and SetTemp are kept as the raw text the hub reports —
// sockets report the sentinel "255.255" there, so parsing is deferred
// to the classifier/validator.
type Zone struct {
	ZoneName string `json:"ZONE_NAME"`
	DeviceID int    `json:"DEVICE_ID"`

	HeatOn           bool `json:"HEAT_ON"`
	CoolOn           bool `json:"COOL_ON"`
	HeatMode         bool `json:"HEAT_MODE"`
	CoolMode         bool `json:"COOL_MODE"`
	Standby          bool `json:"STANDBY"`
	ManualOff        bool `json:"MANUAL_OFF"`
	TimerOn          bool `json:"TIMER_ON"`
	WindowOpen       bool `json:"WINDOW_OPEN"`
	LowBattery       bool `json:"LOW_BATTERY"`
	Offline          bool `json:"OFFLINE"`
	Holiday          bool `json:"HOLIDAY"`
	Away             bool `json:"AWAY"`
	ModeLock         bool `json:"MODELOCK"`
	Lock             bool `json:"LOCK"`
	HoldOn           bool `json:"HOLD_ON"`
	HoldOff          bool `json:"HOLD_OFF"`
	Timeclock        bool `json:"TIMECLOCK"`
	TemporarySetFlag bool `json:"TEMPORARY_SET_FLAG"`
	PrgTimer         bool `json:"PRG_TIMER"`
	PreheatActive    bool `json:"PREHEAT_ACTIVE"`
	FloorLimit       bool `json:"FLOOR_LIMIT"`

	ActualTemp      string `json:"ACTUAL_TEMP"`
	SetTemp         string `json:"SET_TEMP"`
	HCMode          string `json:"HC_MODE"`
	HoldTime        string `json:"HOLD_TIME"`
	Date            string `json:"DATE"`
	Time            string `json:"TIME"`
	SwitchDelayLeft string `json:"SWITCH_DELAY_LEFT"`
	PinNumber       string `json:"PIN_NUMBER"`
	FanSpeed        string `json:"FAN_SPEED"`
	FanControl      string `json:"FAN_CONTROL"`

	RelativeHumidity int `json:"RELATIVE_HUMIDITY"`
	ModulationLevel  int `json:"MODULATION_LEVEL"`
	ActiveProfile    int `json:"ACTIVE_PROFILE"`
	ActiveLevel      int `json:"ACTIVE_LEVEL"`
	WriteCount       int `json:"WRITE_COUNT"`

	// Delivered by the hub as either numbers or numeric-looking
	// strings; decoded leniently, unparsable values become 0.
	CurrentFloorTemperature float64 `json:"CURRENT_FLOOR_TEMPERATURE"`
	HoldCool                float64 `json:"HOLD_COOL"`
	CoolTemp                float64 `json:"COOL_TEMP"`
	HoldTemp                float64 `json:"HOLD_TEMP"`
	PrgTemp                 float64 `json:"PRG_TEMP"`

	// Normalized to non-nil slices by the decoder.
	AvailableModes []string `json:"AVAILABLE_MODES"`
	RecentTemps    []string `json:"RECENT_TEMPS"`
}

// Mode is a zone heat/cool operation mode accepted by SetMode.
type Mode string

const (
	ModeHeat Mode = "HEAT"
	ModeCool Mode = "COOL"
	ModeVent Mode = "VENT"
)

// DeviceKind is the derived classification of a zone record. It is
// computed from content on every fetch, never stored hub state.
type DeviceKind string

const (
	KindThermostat DeviceKind = "THERMOSTAT"
	KindSocket     DeviceKind = "SOCKET"
)
