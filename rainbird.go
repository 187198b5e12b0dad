// Package rainbird is a client for Rain Bird irrigation controllers fitted
// with an LNK WiFi module. It dispatches commands from the SIP table over an
// encrypted tunnel, projects replies into typed values, and keeps a
// short-lived cache of zone and rain sensor state so frequent polls do not
// hammer the device.
package rainbird

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jlinford/pyrainbird/journal"
	"github.com/jlinford/pyrainbird/sip"
	"github.com/jlinford/pyrainbird/tunnel"
)

const (
	// DefaultUpdateDelay is the freshness window for cached device state.
	DefaultUpdateDelay = 20 * time.Second

	// DefaultPage is the station table page polled for zone state.
	DefaultPage = 0
)

// Controller drives one irrigation controller. Every operation blocks until
// the transport answers or gives up, and issues at most one request at a
// time. A Controller is not safe for concurrent use: callers that need that
// serialize access with their own mutex or keep one Controller per
// goroutine.
type Controller struct {
	transport   Transport
	updateDelay time.Duration
	state       deviceState
	journal     *journal.Journal
	log         zerolog.Logger
	now         func() time.Time
}

// New returns a Controller talking to the device at host over the encrypted
// tunnel transport, authenticated with the controller password.
func New(host, password string) *Controller {
	return NewWithTransport(tunnel.New(host, password))
}

// NewWithTransport returns a Controller on an existing transport.
func NewWithTransport(tr Transport) *Controller {
	return &Controller{
		transport:   tr,
		updateDelay: DefaultUpdateDelay,
		state:       deviceState{zones: allOff},
		log:         log.Logger,
		now:         time.Now,
	}
}

// SetUpdateDelay adjusts the freshness window for cached device state.
func (c *Controller) SetUpdateDelay(d time.Duration) {
	c.updateDelay = d
}

func (c *Controller) SetLogger(l zerolog.Logger) {
	c.log = l
}

// SetJournal records action commands to j. Journal failures are logged and
// never fail the operation that triggered them.
func (c *Controller) SetJournal(j *journal.Journal) {
	c.journal = j
}

// ModelAndVersion reads the hardware model and protocol revision.
func (c *Controller) ModelAndVersion() (Result[ModelAndVersion], error) {
	return process(c, "ModelAndVersion", modelAndVersionFrom)
}

// AvailableStations reads the set of configured stations for a page of the
// station table.
func (c *Controller) AvailableStations(page int) (Result[AvailableStations], error) {
	return process(c, "AvailableStations", availableStationsFrom, page)
}

// CommandSupport asks the controller whether it understands a command code.
func (c *Controller) CommandSupport(command int) (Result[CommandSupport], error) {
	return process(c, "CommandSupport", commandSupportFrom, command)
}

// SerialNumber reads the controller serial number.
func (c *Controller) SerialNumber() (Result[uint64], error) {
	return process(c, "SerialNumber", serialNumberFrom)
}

// CurrentTime reads the controller clock. Only the time of day is
// meaningful; the date fields are zero.
func (c *Controller) CurrentTime() (Result[time.Time], error) {
	return process(c, "CurrentTime", clockTimeFrom)
}

// CurrentDate reads the controller calendar.
func (c *Controller) CurrentDate() (Result[time.Time], error) {
	return process(c, "CurrentDate", calendarDateFrom)
}

// WaterBudget reads the seasonal adjustment for a program.
func (c *Controller) WaterBudget(program int) (Result[WaterBudget], error) {
	return process(c, "WaterBudget", waterBudgetFrom, program)
}

// RainDelay reads the rain delay setting in days.
func (c *Controller) RainDelay() (Result[int], error) {
	return process(c, "RainDelayGet", rainDelayFrom)
}

// IrrigationState reads the controller-level irrigation flag, 1 while the
// controller considers irrigation enabled.
func (c *Controller) IrrigationState() (Result[int], error) {
	return process(c, "CurrentIrrigationState", irrigationStateFrom)
}

// Schedule queries the program schedule and returns the decoded reply as is.
// Schedule layouts vary by model, so no projection is applied.
func (c *Controller) Schedule(paramOne, paramTwo int) (*sip.Response, error) {
	return c.Command("CurrentSchedule", paramOne, paramTwo)
}

// RunProgram starts a watering program and reports whether the controller
// acked it.
func (c *Controller) RunProgram(program int) (bool, error) {
	ok, err := c.acknowledged("ManuallyRunProgram", program)
	if err != nil {
		return false, err
	}
	if c.journal != nil {
		c.record(c.journal.RecordProgram(program, ok))
	}
	return ok, nil
}

// TestStation runs the controller's station test for a station.
func (c *Controller) TestStation(station int) (bool, error) {
	return c.acknowledged("TestStations", station)
}

// SetRainDelay pauses watering for a number of days and reports whether the
// controller acked it.
func (c *Controller) SetRainDelay(days int) (bool, error) {
	ok, err := c.acknowledged("RainDelaySet", days)
	if err != nil {
		return false, err
	}
	if c.journal != nil {
		c.record(c.journal.RecordRainDelay(days, ok))
	}
	return ok, nil
}

// AdvanceStation skips ahead in the running program.
func (c *Controller) AdvanceStation(param int) (bool, error) {
	return c.acknowledged("AdvanceStation", param)
}

// IrrigateZone starts a manual run on a station, numbered from 1, for the
// given minutes. The result is true only when the controller acked the run
// and a forced state refresh shows the station active; an acked run whose
// station stays off reports false with no error.
func (c *Controller) IrrigateZone(zone, minutes int) (bool, error) {
	acked, err := c.acknowledged("ManuallyRunStation", zone, minutes)
	if err != nil {
		return false, err
	}
	st, err := c.refreshZones(DefaultPage)
	if err != nil {
		return false, err
	}
	active, err := st.Active(zone - 1)
	if err != nil {
		return false, err
	}
	ok := acked && active
	if c.journal != nil {
		c.record(c.journal.RecordRun(zone, minutes, ok))
	}
	return ok, nil
}

// StopIrrigation halts all watering. The result is true only when the
// controller acked the stop and a forced state refresh shows every station
// off.
func (c *Controller) StopIrrigation() (bool, error) {
	acked, err := c.acknowledged("StopIrrigation")
	if err != nil {
		return false, err
	}
	st, err := c.refreshZones(DefaultPage)
	if err != nil {
		return false, err
	}
	ok := acked && !st.AnyActive()
	if c.journal != nil {
		c.record(c.journal.RecordStop(ok))
	}
	return ok, nil
}

func (c *Controller) record(err error) {
	if err != nil {
		c.log.Warn().Err(err).Msg("Journal write failed")
	}
}
