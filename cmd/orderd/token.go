package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/nikolayk812/ordermgr/internal/auth"
	"github.com/nikolayk812/ordermgr/internal/config"
	"github.com/nikolayk812/ordermgr/internal/domain"
)

// issueToken implements `orderd token -user <id> [-role user|admin]`: it signs a
// bearer token with the configured secret and ttl and prints it to out.
func issueToken(cfg config.AuthConfig, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	userID := fs.String("user", "", "user id placed in the token subject")
	roleName := fs.String("role", "user", "role: user|admin")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if *userID == "" {
		return fmt.Errorf("token: -user is required")
	}

	role, err := domain.ToRole(*roleName)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	authn, err := auth.NewAuthenticator(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("auth.NewAuthenticator: %w", err)
	}

	token, err := authn.IssueToken(domain.Identity{UserID: *userID, Role: role})
	if err != nil {
		return fmt.Errorf("authn.IssueToken: %w", err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}
