package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfeidau/steeple/internal/logger"
)

// SuperAdminCmd sets the global privileged flag on an existing user.
type SuperAdminCmd struct {
	Email  string `help:"email of the user" required:""`
	Revoke bool   `help:"clear the flag instead of setting it" default:"false"`

	StoreType     string             `help:"store type" default:"postgres" env:"STEEPLE_STORE_TYPE" enum:"postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *SuperAdminCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	st, err := openStores(ctx, log, c.StoreType, &c.PostgresStore, &RedisFlags{})
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := st.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(c.Email)))
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", c.Email, err)
	}

	if err := st.Users.SetSuperAdmin(ctx, user.UserID, !c.Revoke); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	log.Info().
		Str("user_id", user.UserID.String()).
		Str("email", user.Email).
		Bool("super_admin", !c.Revoke).
		Msg("Updated super admin flag")
	return nil
}
