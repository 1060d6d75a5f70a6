// Package bot wires the onboarding bot together: it connects to Slack
// over Socket Mode, dispatches incoming envelopes to handlers, and
// renders each user's checklist as an App Home view backed by SQLite.
package bot

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/urfave/cli/v3"

	"github.com/tmstreet/onboardbot/pkg/checklist"
	"github.com/tmstreet/onboardbot/pkg/health"
	"github.com/tmstreet/onboardbot/pkg/slack"
	"github.com/tmstreet/onboardbot/pkg/store"
	"github.com/tmstreet/onboardbot/pkg/websocket"
)

// bot holds the long-lived dependencies shared by all event handlers.
type bot struct {
	api       *slack.Client
	store     *store.Store
	checklist *checklist.Checklist
}

// Start initializes the bot's logging, storage, Slack clients, and
// health endpoint, and then runs the Socket Mode event loop. This is
// blocking, it only returns on a fatal initialization error.
func Start(ctx context.Context, cmd *cli.Command) error {
	initLog(cmd.Bool("dev"))

	botToken := cmd.String("slack-bot-token")
	appToken := cmd.String("slack-app-token")
	if !strings.HasPrefix(botToken, "xoxb-") {
		return fmt.Errorf(`missing or invalid Slack bot token (expecting "xoxb-...")`)
	}
	if !strings.HasPrefix(appToken, "xapp-") {
		return fmt.Errorf(`missing or invalid Slack app-level token (expecting "xapp-...")`)
	}

	cl, err := checklist.Load(cmd.String("checklist-file"))
	if err != nil {
		return err
	}
	log.Info().Int("tasks", cl.Len()).Strs("groups", cl.GroupNames()).Msg("loaded checklist")

	ctx = log.Logger.WithContext(ctx)

	st, err := store.Open(ctx, cmd.String("db-path"))
	if err != nil {
		return err
	}
	defer st.Close()

	api := slack.NewClient(botToken, appToken)
	userID, team, err := api.AuthTest(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate with Slack: %w", err)
	}
	log.Info().Str("bot_user_id", userID).Str("team", team).Msg("authenticated with Slack")

	b := &bot{api: api, store: st, checklist: cl}
	return b.run(ctx, cmd.Int("health-port"))
}

// run connects to Slack over Socket Mode and consumes
// envelopes until the connection is shut down.
func (b *bot) run(ctx context.Context, healthPort int) error {
	// An opaque ID to correlate this process's log entries across restarts.
	l := zerolog.Ctx(ctx).With().Str("session_id", shortuuid.New()).Logger()
	ctx = l.WithContext(ctx)

	ws, err := websocket.NewClient(ctx, b.socketURL)
	if err != nil {
		return fmt.Errorf("failed to open Socket Mode connection: %w", err)
	}
	defer ws.Close()

	go func() {
		if err := health.NewServer(healthPort, ws.Connected).Run(); err != nil {
			l.Error().Err(err).Msg("health endpoint crashed")
		}
	}()

	l.Info().Msg("Socket Mode connection is open, waiting for events")
	for msg := range ws.IncomingMessages() {
		b.handleMessage(ctx, ws, msg.Data)
	}

	return nil
}

// socketURL resolves a fresh single-use Socket Mode URL, on
// every connection attempt.
func (b *bot) socketURL(ctx context.Context) (string, error) {
	return b.api.OpenSocketURL(ctx)
}

// initLog initializes the logger for the bot, based on
// whether it's running in development mode or not.
func initLog(devMode bool) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if !devMode {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05.000",
	}).With().Caller().Logger()

	log.Warn().Msg("********** DEV MODE - UNSAFE IN PRODUCTION! **********")
}
