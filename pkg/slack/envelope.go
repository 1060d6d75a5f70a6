package slack

import (
	"encoding/json"
	"fmt"
)

// Socket Mode envelope types, as defined in
// https://docs.slack.dev/apis/events-api/using-socket-mode.
const (
	EnvelopeHello        = "hello"
	EnvelopeDisconnect   = "disconnect"
	EnvelopeEventsAPI    = "events_api"
	EnvelopeInteractive  = "interactive"
	EnvelopeSlashCommand = "slash_commands"
)

// Event types that the onboarding bot subscribes to.
const (
	EventAppHomeOpened = "app_home_opened"
	EventTeamJoin      = "team_join"
)

// Envelope is a single Socket Mode message from Slack. Event payloads
// are left raw here, to be parsed based on the envelope type.
type Envelope struct {
	EnvelopeID             string          `json:"envelope_id"`
	Type                   string          `json:"type"`
	Payload                json.RawMessage `json:"payload"`
	AcceptsResponsePayload bool            `json:"accepts_response_payload"`
	RetryAttempt           int             `json:"retry_attempt"`
	RetryReason            string          `json:"retry_reason"`

	// Only in "disconnect" envelopes, e.g. "refresh_requested".
	Reason string `json:"reason"`
}

// ParseEnvelope parses a raw Socket Mode WebSocket message.
func ParseEnvelope(data []byte) (*Envelope, error) {
	e := &Envelope{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to parse Socket Mode envelope: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("Socket Mode envelope without a type: %s", data)
	}
	return e, nil
}

// Ack constructs the acknowledgment message that must be sent back to
// Slack within 3 seconds of receiving the envelope. The optional payload
// is used as the user-visible response to slash commands.
func (e *Envelope) Ack(payload any) ([]byte, error) {
	ack := map[string]any{"envelope_id": e.EnvelopeID}
	if payload != nil && e.AcceptsResponsePayload {
		ack["payload"] = payload
	}

	data, err := json.Marshal(ack)
	if err != nil {
		return nil, fmt.Errorf("failed to encode Socket Mode ack: %w", err)
	}
	return data, nil
}

// EventsAPIPayload is the payload of "events_api" envelopes. See
// https://docs.slack.dev/apis/events-api#callback-field.
type EventsAPIPayload struct {
	TeamID string `json:"team_id"`
	Event  Event  `json:"event"`
}

// Event is an Events API event. Only the fields that the
// bot's subscribed event types share are represented.
type Event struct {
	Type string    `json:"type"`
	User EventUser `json:"user"`
	Tab  string    `json:"tab,omitempty"` // app_home_opened: "home" or "messages".
}

// EventUser is the user a Slack event refers to. Some event types encode
// it as a plain user ID string (e.g. "app_home_opened"), others as a full
// user object (e.g. "team_join").
type EventUser struct {
	ID string
}

func (u *EventUser) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &u.ID)
	}

	obj := struct {
		ID string `json:"id"`
	}{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	u.ID = obj.ID
	return nil
}

func (u EventUser) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.ID)
}

// ParseEventsAPIPayload parses the payload of an "events_api" envelope.
func ParseEventsAPIPayload(payload json.RawMessage) (*EventsAPIPayload, error) {
	p := &EventsAPIPayload{}
	if err := json.Unmarshal(payload, p); err != nil {
		return nil, fmt.Errorf("failed to parse Events API payload: %w", err)
	}
	return p, nil
}

// InteractivePayload is the payload of "interactive" envelopes, limited
// to "block_actions" fields. See
// https://docs.slack.dev/reference/interaction-payloads/block_actions-payload.
type InteractivePayload struct {
	Type    string        `json:"type"`
	User    EventUser     `json:"user"`
	Actions []BlockAction `json:"actions"`
}

// BlockAction is a single user interaction with a Block Kit element.
type BlockAction struct {
	ActionID        string           `json:"action_id"`
	SelectedOptions []SelectedOption `json:"selected_options"`
}

// SelectedOption is a currently-checked option of a checkbox element.
type SelectedOption struct {
	Value string `json:"value"`
}

// ParseInteractivePayload parses the payload of an "interactive" envelope.
func ParseInteractivePayload(payload json.RawMessage) (*InteractivePayload, error) {
	p := &InteractivePayload{}
	if err := json.Unmarshal(payload, p); err != nil {
		return nil, fmt.Errorf("failed to parse interactive payload: %w", err)
	}
	return p, nil
}

// SlashCommandPayload is the payload of "slash_commands" envelopes. See
// https://docs.slack.dev/interactivity/implementing-slash-commands.
type SlashCommandPayload struct {
	Command string `json:"command"`
	Text    string `json:"text"`
	UserID  string `json:"user_id"`
}

// ParseSlashCommandPayload parses the payload of a "slash_commands" envelope.
func ParseSlashCommandPayload(payload json.RawMessage) (*SlashCommandPayload, error) {
	p := &SlashCommandPayload{}
	if err := json.Unmarshal(payload, p); err != nil {
		return nil, fmt.Errorf("failed to parse slash command payload: %w", err)
	}
	return p, nil
}
