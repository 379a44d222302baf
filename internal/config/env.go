package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Env carries the runtime knobs read from the process environment.
// Command-line flags override these.
type Env struct {
	LogLevel  string `env:"DARWIN_USERS_LOG_LEVEL, default=info"`
	LogPretty bool   `env:"DARWIN_USERS_LOG_PRETTY, default=true"`

	// CommandTimeout bounds every external command invocation; expiry is
	// surfaced as a fatal timeout error.
	CommandTimeout time.Duration `env:"DARWIN_USERS_CMD_TIMEOUT, default=30s"`

	DryRun bool `env:"DARWIN_USERS_DRY_RUN, default=false"`

	// AdminUser / AdminPassword are the delegated credentials used for
	// secure-token grants and token-holder password resets. When the
	// password is unset the CLI prompts on a terminal.
	AdminUser     string `env:"DARWIN_USERS_ADMIN_USER"`
	AdminPassword string `env:"DARWIN_USERS_ADMIN_PASSWORD"`

	ProfilesRoot string `env:"DARWIN_USERS_PROFILES_ROOT, default=/etc/profiles/per-user"`
}

// LoadEnv reads Env from the environment.
func LoadEnv(ctx context.Context) (*Env, error) {
	var e Env
	if err := envconfig.Process(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
