// Package session holds the client's bearer token and authenticated user.
//
// A [Store] is the single source of truth for "is the user signed in": [Store.IsAuthenticated] is
// derived from the token on every call. Each token change is mirrored synchronously to durable
// storage under [models.TokenKey], so a restarted client comes back authenticated without the
// user record, which lives in memory only.
//
// The store also serves as the [oauth2.TokenSource] the gateway decorates requests with, and
// exposes [Store.SetToken] and [Store.Expire] for the gateway's refresh protocol.
package session
