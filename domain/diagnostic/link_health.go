package diagnostic

import (
	"time"

	"github.com/open-teleop/console/pkg/observable"
)

// ConnectionHealth is the link state shown by the status indicator.
type ConnectionHealth struct {
	Connected      bool          `json:"connected"`
	RoundTripDelay time.Duration `json:"-"`
	RoundTripMs    float64       `json:"round_trip_ms"`
	LastHeartbeat  time.Time     `json:"last_heartbeat,omitempty"`
	Transport      string        `json:"transport"`
	Reason         string        `json:"reason,omitempty"`
}

// VehicleStatus is the telemetry the vehicle reports with Status messages.
type VehicleStatus struct {
	WaterDetected bool      `json:"water_detected"`
	Pitch         float64   `json:"pitch"`
	Roll          float64   `json:"roll"`
	DesiredPitch  float64   `json:"desired_pitch"`
	DesiredRoll   float64   `json:"desired_roll"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// LinkState holds Connection Health and vehicle status. Link adapters write
// it; the API and the state stream read it.
type LinkState struct {
	health  *observable.Value[ConnectionHealth]
	vehicle *observable.Value[VehicleStatus]
}

// NewLinkState creates a disconnected link state for transport.
func NewLinkState(transport string) *LinkState {
	return &LinkState{
		health:  observable.NewValue(ConnectionHealth{Transport: transport}),
		vehicle: observable.NewValue(VehicleStatus{}),
	}
}

// Health returns the current Connection Health.
func (s *LinkState) Health() ConnectionHealth { return s.health.Get() }

// Vehicle returns the last reported vehicle status.
func (s *LinkState) Vehicle() VehicleStatus { return s.vehicle.Get() }

// SubscribeHealth streams health changes, latest wins.
func (s *LinkState) SubscribeHealth() (<-chan ConnectionHealth, func()) {
	return s.health.Subscribe()
}

// SubscribeVehicle streams vehicle status changes, latest wins.
func (s *LinkState) SubscribeVehicle() (<-chan VehicleStatus, func()) {
	return s.vehicle.Subscribe()
}

// MarkConnected marks the link up once a session is established.
func (s *LinkState) MarkConnected() {
	s.health.Update(func(h ConnectionHealth) ConnectionHealth {
		h.Connected = true
		h.Reason = ""
		return h
	})
}

// RecordHeartbeat marks the link connected. A non-negative rtt replaces the
// round-trip delay; a negative one keeps the previous measurement.
func (s *LinkState) RecordHeartbeat(at time.Time, rtt time.Duration) {
	s.health.Update(func(h ConnectionHealth) ConnectionHealth {
		h.Connected = true
		h.LastHeartbeat = at
		h.Reason = ""
		if rtt >= 0 {
			h.RoundTripDelay = rtt
			h.RoundTripMs = float64(rtt) / float64(time.Millisecond)
		}
		return h
	})
}

// MarkDisconnected clears the connected flag and records why.
func (s *LinkState) MarkDisconnected(reason string) {
	s.health.Update(func(h ConnectionHealth) ConnectionHealth {
		h.Connected = false
		h.Reason = reason
		return h
	})
}

// UpdateVehicle stores a vehicle status report.
func (s *LinkState) UpdateVehicle(st VehicleStatus) {
	s.vehicle.Set(st)
}

// ResetVehicle clears vehicle telemetry, e.g. on a new connection.
func (s *LinkState) ResetVehicle() {
	s.vehicle.Set(VehicleStatus{})
}
