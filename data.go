package rainbird

import (
	"fmt"
	"time"

	"github.com/jlinford/pyrainbird/sip"
)

// ModelAndVersion identifies the controller hardware and protocol level.
type ModelAndVersion struct {
	ModelID       int
	ProtocolMajor int
	ProtocolMinor int
}

// Name returns the marketing name for the model, or empty when unknown.
func (m ModelAndVersion) Name() string { return modelNames[m.ModelID] }

func (m ModelAndVersion) String() string {
	name := m.Name()
	if name == "" {
		name = fmt.Sprintf("model %04X", m.ModelID)
	}
	return fmt.Sprintf("%s %d.%d", name, m.ProtocolMajor, m.ProtocolMinor)
}

var modelNames = map[int]string{
	0x0003: "ESP-RZXe",
	0x0005: "ESP-TM2",
	0x0006: "ST8x-WiFi",
	0x0007: "ESP-Me",
	0x0008: "ST8x-WiFi2",
	0x0009: "ESP-ME3",
	0x0010: "ESP-Me2",
	0x000A: "ESP-TM2",
	0x0099: "TBOS-BT",
	0x0103: "ESP-RZXe2",
	0x0107: "ESP-Me",
	0x010A: "ESP-TM2",
	0x0812: "ARC8",
}

// AvailableStations is the set of stations configured on the controller for
// one page of the station table.
type AvailableStations struct {
	States States
	Page   int
}

// CommandSupport reports whether the controller understands a command code.
type CommandSupport struct {
	Supported bool
	Echo      byte
}

// WaterBudget is the seasonal watering adjustment for one program.
type WaterBudget struct {
	ProgramCode int
	HighByte    byte
	LowByte     byte
}

// Percent returns the budget percentage as the device reports it.
func (w WaterBudget) Percent() int {
	return int(w.HighByte)<<8 | int(w.LowByte)
}

// Named projections from decoded replies into domain values. Dispatch applies
// these only after the reply variant has been matched, so every field they
// read is present.

func modelAndVersionFrom(resp *sip.Response) (ModelAndVersion, error) {
	return ModelAndVersion{
		ModelID:       int(resp.Field("modelID")),
		ProtocolMajor: int(resp.Field("protocolRevisionMajor")),
		ProtocolMinor: int(resp.Field("protocolRevisionMinor")),
	}, nil
}

func availableStationsFrom(resp *sip.Response) (AvailableStations, error) {
	st, err := ParseStates(fmt.Sprintf("%08X", resp.Field("setStations")))
	if err != nil {
		return AvailableStations{}, err
	}
	return AvailableStations{States: st, Page: int(resp.Field("pageNumber"))}, nil
}

func commandSupportFrom(resp *sip.Response) (CommandSupport, error) {
	return CommandSupport{
		Supported: resp.Field("support") != 0,
		Echo:      byte(resp.Field("commandEcho")),
	}, nil
}

func waterBudgetFrom(resp *sip.Response) (WaterBudget, error) {
	return WaterBudget{
		ProgramCode: int(resp.Field("programCode")),
		HighByte:    byte(resp.Field("highByte")),
		LowByte:     byte(resp.Field("lowByte")),
	}, nil
}

func serialNumberFrom(resp *sip.Response) (uint64, error) {
	return resp.Field("serialNumber"), nil
}

// clockTimeFrom keeps only the time of day; the date fields are zeroed the
// same way the calendar projection zeroes the clock.
func clockTimeFrom(resp *sip.Response) (time.Time, error) {
	return time.Date(0, time.January, 1,
		int(resp.Field("hour")), int(resp.Field("minute")), int(resp.Field("second")),
		0, time.Local), nil
}

func calendarDateFrom(resp *sip.Response) (time.Time, error) {
	return time.Date(int(resp.Field("year")), time.Month(resp.Field("month")), int(resp.Field("day")),
		0, 0, 0, 0, time.Local), nil
}

func rainDelayFrom(resp *sip.Response) (int, error) {
	return int(resp.Field("delaySetting")), nil
}

func irrigationStateFrom(resp *sip.Response) (int, error) {
	return int(resp.Field("irrigationState")), nil
}

func sensorFrom(resp *sip.Response) (bool, error) {
	return resp.Field("sensorState") != 0, nil
}

// activeMaskFrom keeps the first mask byte only, eight stations per page,
// mirroring what the controller actually toggles for manual runs.
func activeMaskFrom(resp *sip.Response) (States, error) {
	mask := fmt.Sprintf("%08X", resp.Field("activeStations"))
	return ParseStates(mask[:2])
}
