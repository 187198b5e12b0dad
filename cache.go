package rainbird

import (
	"errors"
	"fmt"
	"time"

	"github.com/jlinford/pyrainbird/internal/telemetry"
)

// deviceState is the controller-side state one instance caches: the last
// station mask, the last rain sensor flag, and when each was read. Mutated
// only by the staleness-gated paths below.
type deviceState struct {
	zones         States
	rainSensor    *bool
	zonesUpdated  time.Time
	sensorUpdated time.Time
}

// stale reports whether a reading stamped at last has left the freshness
// window by now. A zero stamp is always stale.
func stale(last time.Time, window time.Duration, now time.Time) bool {
	return last.IsZero() || now.After(last.Add(window))
}

// ZoneState reports whether a station is watering right now. Stations are
// numbered from 1. Inside the freshness window the cached mask answers;
// outside it the mask is refreshed first. A failed refresh resets the mask
// to all off and reports ErrStateUnknown, leaving the stamp alone so the
// next call tries again. A reply from a desynchronized device propagates as
// a ProtocolMismatchError without touching the cache.
func (c *Controller) ZoneState(zone int) (bool, error) {
	if stale(c.state.zonesUpdated, c.updateDelay, c.now()) {
		if _, err := c.refreshZones(DefaultPage); err != nil {
			var mismatch *ProtocolMismatchError
			if errors.As(err, &mismatch) {
				return false, err
			}
			c.state.zones = allOff
			telemetry.Incr("cache.zones_reset")
			c.log.Warn().Err(err).Msg("Zone state refresh failed")
			return false, ErrStateUnknown
		}
		c.state.zonesUpdated = c.now()
	} else {
		telemetry.Incr("cache.zones_hit")
	}
	return c.state.zones.Active(zone - 1)
}

// RainSensorState reports whether the rain sensor is tripped, behind the
// same freshness window as ZoneState. A failed refresh clears the cached
// flag and reports ErrStateUnknown.
func (c *Controller) RainSensorState() (bool, error) {
	if stale(c.state.sensorUpdated, c.updateDelay, c.now()) {
		c.log.Debug().Msg("Requesting current rain sensor state")
		res, err := process(c, "CurrentRainSensorState", sensorFrom)
		if err != nil {
			var mismatch *ProtocolMismatchError
			if errors.As(err, &mismatch) {
				return false, err
			}
			c.state.rainSensor = nil
			telemetry.Incr("cache.sensor_reset")
			c.log.Warn().Err(err).Msg("Rain sensor refresh failed")
			return false, ErrStateUnknown
		}
		if !res.Matched() {
			c.state.rainSensor = nil
			telemetry.Incr("cache.sensor_reset")
			return false, ErrStateUnknown
		}
		v := res.Value
		c.state.rainSensor = &v
		c.state.sensorUpdated = c.now()
	} else {
		telemetry.Incr("cache.sensor_hit")
	}
	if c.state.rainSensor == nil {
		return false, ErrStateUnknown
	}
	return *c.state.rainSensor, nil
}

// refreshZones asks the controller for the active station mask and replaces
// the cached value on success. The freshness stamp is the caller's business:
// polled reads stamp it, forced refreshes after an action do not.
func (c *Controller) refreshZones(page int) (States, error) {
	res, err := process(c, "CurrentStationsActive", activeMaskFrom, page)
	if err != nil {
		return States{}, err
	}
	if !res.Matched() {
		return States{}, fmt.Errorf("unexpected %s variant for station mask", res.Raw.Type)
	}
	c.state.zones = res.Value
	return res.Value, nil
}

// StationStates fetches the active station mask for a page immediately,
// bypassing and replacing the cached copy. The freshness stamp does not
// advance, so the next ZoneState poll still refreshes on schedule.
func (c *Controller) StationStates(page int) (States, error) {
	return c.refreshZones(page)
}
