package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/config"
	"github.com/dimitrije/jobboard-api/internal/database"
	"github.com/dimitrije/jobboard-api/internal/events"
	"github.com/dimitrije/jobboard-api/internal/logger"
	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/dimitrije/jobboard-api/internal/services"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const usage = `Usage:
  promote-admin <email> [admin|hr_manager|super_admin]   grant a role (default super_admin)
  promote-admin -revoke <email>                         remove the grant`

func main() {
	args := os.Args[1:]
	revoke := len(args) > 0 && args[0] == "-revoke"
	if revoke {
		args = args[1:]
	}
	if len(args) < 1 || len(args) > 2 || (revoke && len(args) != 1) {
		fmt.Println(usage)
		os.Exit(1)
	}

	email := args[0]
	role := access.RoleSuperAdmin
	if len(args) == 2 {
		parsed, err := access.ParseGrantRole(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n\n%s\n", err, usage)
			os.Exit(1)
		}
		role = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	identities := services.NewIdentityService(db, services.NewPasswordHasher())
	grants := services.NewGrantService(db)

	identity, err := identities.GetByEmail(ctx, email)
	if errors.Is(err, services.ErrIdentityNotFound) {
		log.Fatal().Str("email", email).Msg("no identity found with that email")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to look up identity")
	}

	if revoke {
		if err := grants.Revoke(ctx, identity.ID); err != nil {
			log.Fatal().Err(err).Msg("failed to revoke grant")
		}
		notify(ctx, cfg, log, identity.ID)
		fmt.Printf("Removed the admin grant of %s\n", email)
		return
	}

	grant, err := grants.Set(ctx, identity.ID, role)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set grant")
	}
	notify(ctx, cfg, log, identity.ID)
	fmt.Printf("Granted %s to %s\n", grant.Role, email)
}

// notify tells running API instances that the identity's role changed so
// connected clients re-resolve it. Without redis the change is picked up on
// the client's next lookup.
func notify(ctx context.Context, cfg *config.Config, log zerolog.Logger, identityID uuid.UUID) {
	if cfg.RedisURL == "" {
		return
	}
	rdb, err := events.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("skipping session change notification")
		return
	}
	defer rdb.Close()

	relay := events.NewRedisRelay(rdb, nil, log)
	change := models.SessionChange{Type: models.SessionUserUpdated, IdentityID: identityID}
	if err := relay.Publish(ctx, change); err != nil {
		log.Warn().Err(err).Msg("failed to publish session change")
	}
}
