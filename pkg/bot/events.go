package bot

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tmstreet/onboardbot/pkg/slack"
)

// actionPrefix is the Block Kit action ID prefix of all checkbox groups,
// followed by the lowercased group name ("task_toggle_paperwork", ...).
const actionPrefix = "task_toggle_"

const welcomeMessage = "Welcome to TMS. Open the app's *Home* tab to see your " +
	"onboarding checklist. If you have questions, reply here."

// socket is the Socket Mode connection surface the handlers need:
// sending acknowledgments, and requesting a reconnection.
// Implemented by [websocket.Client], and faked in unit tests.
type socket interface {
	SendText(data []byte) <-chan error
	Reconnect()
}

// handleMessage parses and dispatches a single Socket Mode message.
// Handler errors are logged, never fatal: one bad envelope must not
// take down the event loop.
func (b *bot) handleMessage(ctx context.Context, ws socket, data []byte) {
	l := zerolog.Ctx(ctx)

	e, err := slack.ParseEnvelope(data)
	if err != nil {
		l.Warn().Err(err).Msg("ignoring unparsable Socket Mode message")
		return
	}

	el := l.With().Str("envelope_type", e.Type).Str("envelope_id", e.EnvelopeID).Logger()
	if e.RetryAttempt > 0 {
		el = el.With().Int("retry_attempt", e.RetryAttempt).Str("retry_reason", e.RetryReason).Logger()
	}
	ctx = el.WithContext(ctx)

	switch e.Type {
	case slack.EnvelopeHello:
		el.Info().Msg("Slack said hello")

	case slack.EnvelopeDisconnect:
		// Slack is about to terminate this connection (e.g. its
		// periodic refresh). Closing it now makes the client dial a
		// replacement immediately, instead of waiting for the
		// server-side closure.
		el.Info().Str("reason", e.Reason).Msg("Slack announced a disconnection")
		ws.Reconnect()

	case slack.EnvelopeEventsAPI:
		// Events don't accept response payloads: ack first, then work.
		b.ack(ctx, ws, e, nil)
		b.handleEvent(ctx, e.Payload)

	case slack.EnvelopeInteractive:
		b.ack(ctx, ws, e, nil)
		b.handleInteraction(ctx, e.Payload)

	case slack.EnvelopeSlashCommand:
		b.ack(ctx, ws, e, map[string]string{
			"text": "Opening your checklist in the App Home.",
		})
		b.handleSlashCommand(ctx, e.Payload)

	default:
		el.Debug().RawJSON("payload", e.Payload).Msg("ignoring unrecognized envelope type")
	}
}

// ack acknowledges an envelope within Slack's 3-second deadline. A
// failed ack is not retried here: Slack redelivers the envelope with a
// retry counter, and the handlers are idempotent.
func (b *bot) ack(ctx context.Context, ws socket, e *slack.Envelope, payload any) {
	l := zerolog.Ctx(ctx)

	data, err := e.Ack(payload)
	if err != nil {
		l.Error().Err(err).Msg("failed to encode Socket Mode ack")
		return
	}

	if err := <-ws.SendText(data); err != nil {
		l.Warn().Err(err).Msg("failed to send Socket Mode ack")
	}
}

// handleEvent processes "events_api" envelopes:
// users opening the App Home tab, and users joining the workspace.
func (b *bot) handleEvent(ctx context.Context, payload json.RawMessage) {
	l := zerolog.Ctx(ctx)

	p, err := slack.ParseEventsAPIPayload(payload)
	if err != nil {
		l.Warn().Err(err).Msg("ignoring unparsable event payload")
		return
	}

	userID := p.Event.User.ID
	if userID == "" {
		l.Warn().Str("event_type", p.Event.Type).Msg("ignoring event without a user")
		return
	}

	switch p.Event.Type {
	case slack.EventAppHomeOpened:
		b.refreshHome(ctx, userID)

	case slack.EventTeamJoin:
		if err := b.store.EnsureUser(ctx, userID, b.checklist.IDs()); err != nil {
			l.Error().Err(err).Str("user_id", userID).Msg("failed to seed onboarding progress")
			return
		}
		if err := b.api.PostMessage(ctx, userID, welcomeMessage); err != nil {
			l.Error().Err(err).Str("user_id", userID).Msg("failed to send welcome message")
		}
		b.refreshHome(ctx, userID)

	default:
		l.Debug().Str("event_type", p.Event.Type).Msg("ignoring unsubscribed event type")
	}
}

// handleInteraction processes "interactive" envelopes: checkbox toggles
// in the App Home view. Each checkbox element reports the full selection
// state of its own group, so the stored done-set is updated with merge
// semantics - the toggled group is replaced, all other groups are kept.
func (b *bot) handleInteraction(ctx context.Context, payload json.RawMessage) {
	l := zerolog.Ctx(ctx)

	p, err := slack.ParseInteractivePayload(payload)
	if err != nil {
		l.Warn().Err(err).Msg("ignoring unparsable interactive payload")
		return
	}

	userID := p.User.ID
	changed := false
	for _, action := range p.Actions {
		if !strings.HasPrefix(action.ActionID, actionPrefix) {
			l.Debug().Str("action_id", action.ActionID).Msg("ignoring unrecognized action")
			continue
		}

		group := strings.TrimPrefix(action.ActionID, actionPrefix)
		if err := b.toggleGroup(ctx, userID, group, action.SelectedOptions); err != nil {
			l.Error().Err(err).Str("user_id", userID).Str("group", group).
				Msg("failed to save checkbox changes")
			continue
		}
		changed = true
	}

	if changed {
		b.refreshHome(ctx, userID)
	}
}

// toggleGroup replaces the done-state of a single task group with the
// user's current selection, preserving the state of all other groups.
func (b *bot) toggleGroup(ctx context.Context, userID, group string, selected []slack.SelectedOption) error {
	if err := b.store.EnsureUser(ctx, userID, b.checklist.IDs()); err != nil {
		return err
	}

	done, err := b.store.DoneSet(ctx, userID)
	if err != nil {
		return err
	}

	for _, task := range b.checklist.Group(group) {
		delete(done, task.ID)
	}
	for _, opt := range selected {
		done[opt.Value] = true
	}

	return b.store.SetDone(ctx, userID, b.checklist.IDs(), done)
}

// handleSlashCommand processes "/onboard": the ack already replied to
// the user, so just refresh their App Home view.
func (b *bot) handleSlashCommand(ctx context.Context, payload json.RawMessage) {
	l := zerolog.Ctx(ctx)

	p, err := slack.ParseSlashCommandPayload(payload)
	if err != nil {
		l.Warn().Err(err).Msg("ignoring unparsable slash command payload")
		return
	}

	l.Info().Str("command", p.Command).Str("user_id", p.UserID).Msg("received slash command")
	b.refreshHome(ctx, p.UserID)
}

// refreshHome seeds the user's progress rows if needed,
// and publishes an up-to-date App Home view.
func (b *bot) refreshHome(ctx context.Context, userID string) {
	l := zerolog.Ctx(ctx)

	if err := b.store.EnsureUser(ctx, userID, b.checklist.IDs()); err != nil {
		l.Error().Err(err).Str("user_id", userID).Msg("failed to seed onboarding progress")
		return
	}

	done, err := b.store.DoneSet(ctx, userID)
	if err != nil {
		l.Error().Err(err).Str("user_id", userID).Msg("failed to read onboarding progress")
		return
	}

	if err := b.api.PublishHomeView(ctx, userID, b.homeView(done)); err != nil {
		l.Error().Err(err).Str("user_id", userID).Msg("failed to publish App Home view")
		return
	}

	l.Debug().Str("user_id", userID).Int("done", len(done)).Msg("published App Home view")
}
