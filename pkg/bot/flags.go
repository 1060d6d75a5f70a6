package bot

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	// DefaultDBPath assumes a persistent volume mounted at "/data".
	DefaultDBPath = "/data/onboarding.db"

	DefaultHealthPort = 8080
)

// Flags defines CLI flags to configure the bot. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "slack-bot-token",
			Usage: `Slack bot token ("xoxb-...")`,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_BOT_TOKEN"),
				toml.TOML("slack.bot_token", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-app-token",
			Usage: `Slack app-level token with "connections:write" scope ("xapp-...")`,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_APP_TOKEN"),
				toml.TOML("slack.app_token", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "db-path",
			Usage: "path of the SQLite progress database",
			Value: DefaultDBPath,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ONBOARDING_DB_PATH"),
				toml.TOML("db.path", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "checklist-file",
			Usage: "optional TOML file overriding the built-in checklist",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("ONBOARDING_CHECKLIST_FILE"),
				toml.TOML("checklist.file", configFilePath),
			),
		},
		&cli.IntFlag{
			Name:  "health-port",
			Usage: "HTTP port of the liveness endpoint",
			Value: DefaultHealthPort,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("HEALTH_PORT"),
				toml.TOML("health.port", configFilePath),
			),
		},
	}
}
