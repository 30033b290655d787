package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mcampolo/reeldeck/internal/server"
	"github.com/mcampolo/reeldeck/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin runs the Dropbox OAuth2 authorization-code flow with a local
// callback server and persists the resulting tokens to the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.dropbox == nil {
		return fmt.Errorf("%w: dropbox credentials not configured", shared.ErrMissingCredentials)
	}

	token, accountID, err := r.doOAuth()
	if err != nil {
		return err
	}

	r.dropbox.SetToken(ctx, token)

	if err := r.saveTokens(token); err != nil {
		r.logger.Warnf("tokens obtained but not persisted: %v", err)
	}

	if accountID != "" {
		r.writePlain("✓ Dropbox connected (account %s)\n", accountID)
	} else {
		r.writePlain("✓ Dropbox connected\n")
	}
	return nil
}

// AuthStatus checks the current authentication state by listing the root folder.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.provider == nil {
		return fmt.Errorf("%w: dropbox credentials not configured", shared.ErrMissingCredentials)
	}

	r.logger.Info("checking auth status")

	_, err := r.provider.List(ctx, "/")
	switch {
	case err == nil:
		r.writePlain("✓ Authenticated with %s\n", r.provider.Name())
		return nil
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrTokenExpired):
		r.writePlain("✗ Not authenticated. Run 'reeldeck auth login'.\n")
		return nil
	default:
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth() (*oauth2.Token, string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := r.dropbox.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(r.dropbox.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Dropbox authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, "", fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, "", fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, "", fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, "", fmt.Errorf("no token received")
	}

	return result.Token, result.AccountID, nil
}
