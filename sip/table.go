// Package sip implements the serial interface protocol spoken by Rain Bird
// controllers: the command table and the request/response byte codec. The
// protocol is tunnelled to LNK WiFi modules as hex payloads, which is why
// response field layouts are addressed in hex nibbles rather than bytes.
package sip

// CommandSpec describes one controller command.
type CommandSpec struct {
	Code     byte  // request code byte
	Length   int   // encoded request length in bytes, including the code byte
	Response byte  // reply code the controller answers with
	Args     []int // byte width of each argument, in order
}

// Field is a single value inside a reply payload. Pos and Nibbles address the
// hex encoding of the payload, counting from the reply code at nibble 0.
type Field struct {
	Name    string
	Pos     int
	Nibbles int
}

// ResponseSpec describes one reply layout.
type ResponseSpec struct {
	Length int // reply length in bytes
	Type   string
	Fields []Field
}

var commands = map[string]CommandSpec{
	"ModelAndVersion":        {Code: 0x02, Length: 1, Response: 0x82},
	"AvailableStations":      {Code: 0x03, Length: 2, Response: 0x83, Args: []int{1}},
	"CommandSupport":         {Code: 0x04, Length: 2, Response: 0x84, Args: []int{1}},
	"SerialNumber":           {Code: 0x05, Length: 1, Response: 0x85},
	"CurrentTime":            {Code: 0x10, Length: 1, Response: 0x90},
	"CurrentDate":            {Code: 0x12, Length: 1, Response: 0x92},
	"CurrentSchedule":        {Code: 0x20, Length: 3, Response: 0xA0, Args: []int{1, 1}},
	"WaterBudget":            {Code: 0x30, Length: 2, Response: 0xB0, Args: []int{1}},
	"RainDelayGet":           {Code: 0x36, Length: 1, Response: 0xB6},
	"RainDelaySet":           {Code: 0x37, Length: 3, Response: 0x01, Args: []int{2}},
	"ManuallyRunProgram":     {Code: 0x38, Length: 2, Response: 0x01, Args: []int{1}},
	"ManuallyRunStation":     {Code: 0x39, Length: 4, Response: 0x01, Args: []int{2, 1}},
	"TestStations":           {Code: 0x3A, Length: 2, Response: 0x01, Args: []int{1}},
	"CurrentRainSensorState": {Code: 0x3E, Length: 1, Response: 0xBE},
	"CurrentStationsActive":  {Code: 0x3F, Length: 2, Response: 0xBF, Args: []int{1}},
	"StopIrrigation":         {Code: 0x40, Length: 1, Response: 0x01},
	"AdvanceStation":         {Code: 0x42, Length: 2, Response: 0x01, Args: []int{1}},
	"CurrentIrrigationState": {Code: 0x48, Length: 1, Response: 0xC8},
}

var responses = map[byte]ResponseSpec{
	0x00: {Length: 3, Type: "NotAcknowledgeResponse", Fields: []Field{
		{"commandEcho", 2, 2},
		{"NAKCode", 4, 2},
	}},
	0x01: {Length: 2, Type: "AcknowledgeResponse", Fields: []Field{
		{"commandEcho", 2, 2},
	}},
	0x82: {Length: 5, Type: "ModelAndVersionResponse", Fields: []Field{
		{"modelID", 2, 4},
		{"protocolRevisionMajor", 6, 2},
		{"protocolRevisionMinor", 8, 2},
	}},
	0x83: {Length: 6, Type: "AvailableStationsResponse", Fields: []Field{
		{"pageNumber", 2, 2},
		{"setStations", 4, 8},
	}},
	0x84: {Length: 3, Type: "CommandSupportResponse", Fields: []Field{
		{"commandEcho", 2, 2},
		{"support", 4, 2},
	}},
	0x85: {Length: 9, Type: "SerialNumberResponse", Fields: []Field{
		{"serialNumber", 2, 16},
	}},
	0x90: {Length: 4, Type: "CurrentTimeResponse", Fields: []Field{
		{"hour", 2, 2},
		{"minute", 4, 2},
		{"second", 6, 2},
	}},
	0x92: {Length: 4, Type: "CurrentDateResponse", Fields: []Field{
		{"day", 2, 2},
		{"month", 4, 1},
		{"year", 5, 3},
	}},
	// Schedule replies carry model-specific detail bytes after the echoed
	// parameters. Only the echoes are decoded; callers read the rest from Data.
	0xA0: {Length: 14, Type: "CurrentScheduleResponse", Fields: []Field{
		{"parameterOne", 2, 2},
		{"parameterTwo", 4, 2},
	}},
	0xB0: {Length: 4, Type: "WaterBudgetResponse", Fields: []Field{
		{"programCode", 2, 2},
		{"highByte", 4, 2},
		{"lowByte", 6, 2},
	}},
	0xB6: {Length: 3, Type: "RainDelaySettingResponse", Fields: []Field{
		{"delaySetting", 2, 4},
	}},
	0xBE: {Length: 2, Type: "CurrentRainSensorStateResponse", Fields: []Field{
		{"sensorState", 2, 2},
	}},
	0xBF: {Length: 6, Type: "CurrentStationsActiveResponse", Fields: []Field{
		{"pageNumber", 2, 2},
		{"activeStations", 4, 8},
	}},
	0xC8: {Length: 2, Type: "CurrentIrrigationStateResponse", Fields: []Field{
		{"irrigationState", 2, 2},
	}},
}

// Command resolves a command name to its table entry.
func Command(name string) (CommandSpec, bool) {
	spec, ok := commands[name]
	return spec, ok
}

// ResponseType returns the variant tag for a reply code.
func ResponseType(code byte) (string, bool) {
	spec, ok := responses[code]
	return spec.Type, ok
}
