package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/spyt/internal/server"
	"github.com/desertthunder/spyt/internal/services"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/urfave/cli/v3"
)

const authTimeout = 2 * time.Minute

// AuthLogin performs the Google OAuth2 consent flow.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization,
// and exchanges the code for a token that is saved to token_path.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.requireAuth()
	if err != nil {
		return err
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = authTimeout
	}

	if err := r.doOAuth(ctx, auth, !cmd.Bool("no-browser"), timeout); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n\n", r.config.Credentials.YouTube.TokenPath)
	r.writePlain("You can now use: spyt convert <spotify playlist url>\n")
	return nil
}

// doOAuth serves the callback until the handler reports a result, the timeout fires, or ctx ends.
func (r *Runner) doOAuth(ctx context.Context, auth *services.YouTubeAuth, openBrowser bool, timeout time.Duration) error {
	addr, path, err := server.CallbackAddr(auth.Config().RedirectURL)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	state := shared.GenerateState()
	authURL := auth.AuthURL(state)

	oauthHandler := server.NewOAuthHandler(auth, path, state)
	router := server.NewCallbackRouter(oauthHandler, server.RequestLogger(shared.WithLogger(r.logger, "component", "oauth")))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", addr)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	if openBrowser {
		r.writePlain("→ Opening browser for YouTube authorization...\n")
		if err := r.openBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	} else {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return fmt.Errorf("%w: authorization timed out after %s; finish with 'spyt auth callback <url>'", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if result.Error() != nil {
		return fmt.Errorf("authorization failed: %w", result.Error())
	}
	return nil
}

// AuthStatus reports whether a usable YouTube token is saved.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	yt := r.config.Credentials.YouTube

	auth, err := r.requireAuth()
	if err != nil {
		r.writePlain("Client secret: ✗ %v\n", err)
		return nil
	}
	r.writePlain("Client secret: ✓ %s\n", yt.ClientSecretPath)
	r.writePlain("Redirect URI: %s\n", auth.Config().RedirectURL)

	if !auth.IsAuthenticated() {
		r.writePlain("Authentication: ✗ Not authenticated (run 'spyt auth login')\n")
		return nil
	}

	r.writePlain("Authentication: ✓ Authenticated\n")
	if tok := auth.Token(); tok != nil && !tok.Expiry.IsZero() {
		if tok.Valid() {
			r.writePlain("Access token expires: %s\n", tok.Expiry.Format(time.RFC1123))
		} else {
			r.writePlain("Access token expired; it will be refreshed on next use\n")
		}
	}
	return nil
}

// AuthCallback completes authorization from the redirect URL the browser landed on.
//
// Used when the local callback server could not be reached.
func (r *Runner) AuthCallback(ctx context.Context, cmd *cli.Command) error {
	responseURL := strings.TrimSpace(cmd.StringArg("url"))
	if responseURL == "" {
		return fmt.Errorf("%w: redirect url (spyt auth callback <url>)", shared.ErrMissingArgument)
	}

	auth, err := r.requireAuth()
	if err != nil {
		return err
	}

	if err := auth.HandleCallback(ctx, responseURL, ""); err != nil {
		return err
	}
	return r.writePlain("✓ Authorization successful\n")
}

// AuthLogout deletes the saved YouTube token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.requireAuth()
	if err != nil {
		return err
	}
	if err := auth.Logout(); err != nil {
		return err
	}
	r.logger.Info("youtube token removed", "path", r.config.Credentials.YouTube.TokenPath)
	return r.writePlain("✓ Logged out\n")
}
