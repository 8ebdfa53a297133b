package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/identity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/redis"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

func NewSweepCommand(opts *RootOptions) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete guest cart lines older than --max-age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			store, err := openStore(ctx, opts.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			if maxAge <= 0 {
				maxAge = opts.cfg.Sweeper.MaxAge
			}
			n, err := service.NewCartService(store).SweepExpiredGuestCarts(ctx, maxAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d guest cart lines\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "age after which guest lines are removed (default from config)")
	return cmd
}

type tokenOutput struct {
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewTokenCommand mints a bearer token for an existing user ID. It does not
// check that the user exists; the resolver does that on every request.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if opts.cfg.Auth.JWTSecret == "" {
				return errors.New("JWT_SECRET is required to issue tokens")
			}
			if ttl <= 0 {
				ttl = opts.cfg.Auth.TokenTTL
			}

			token, err := identity.NewTokenIssuer(opts.cfg.Auth.JWTSecret).Issue(userID, ttl)
			if err != nil {
				return err
			}
			return printJSON(cmd, tokenOutput{UserID: userID, Token: token, ExpiresAt: time.Now().Add(ttl).UTC()})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	return cmd
}

// NewGuestCookieCommand issues a guest cookie, registering it in Redis when
// Redis is configured.
func NewGuestCookieCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "guest-cookie",
		Short: "Issue a guest cart cookie",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			var sessions identity.GuestSessions
			if opts.cfg.Redis.Addr != "" {
				client, err := redis.Connect(ctx, opts.cfg.Redis)
				if err != nil {
					return err
				}
				defer client.Close()
				sessions = redis.NewGuestSessions(client)
			}

			resolver := identity.NewResolver(nil, nil, sessions, opts.cfg.Auth.GuestCookieTTL)
			cookie, err := resolver.IssueGuestCookie(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, cookie)
		},
	}
}
