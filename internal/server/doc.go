// Package server provides HTTP routing, middleware, and OAuth handling for the CLI login flow.
//
// # Callback Router
//
// [CallbackRouter] serves the routes of one [Handler] behind a [Middleware] chain. Paths are matched
// exactly and only GET is accepted, so stray browser requests such as /favicon.ico get a 404 instead of
// consuming the callback. [RequestLogger] is the only middleware spyt installs.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow for Google.
//
// The handler validates the state parameter (CSRF protection), hands the authorization code to an [Exchanger]
// that obtains and persists the token, and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// `spyt auth login` starts a temporary HTTP server on the host, port and path of the configured redirect URI
// ([CallbackAddr]), opens the consent page in the browser, and shuts down after the callback arrives.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
