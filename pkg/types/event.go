package types

import "time"

type EventType string

const (
	EventScenarioStarted EventType = "ScenarioStarted"
	EventPhaseStarted    EventType = "PhaseStarted"
	EventPhaseCompleted  EventType = "PhaseCompleted"
	EventSilenceStarted  EventType = "SilenceStarted"
	EventSettleWait      EventType = "SettleWait"
	EventScenarioDone    EventType = "ScenarioCompleted"
	EventScenarioAborted EventType = "ScenarioAborted"
)

type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"ts"`
	Scenario  string         `json:"scenario,omitempty"`
	Role      string         `json:"role,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}
