// Package server provides HTTP routing, middleware and the mock ZipDrop API used for offline work.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers "METHOD /path" patterns on [http.ServeMux], so handlers
// read path parameters with [http.Request.PathValue].
//
// # Mock API
//
// [MockAPI] implements the auth and project endpoints in memory. Issued tokens expire after a
// configurable TTL and can be exchanged at /auth/refresh, so clients exercise their refresh path
// against it. [Latency] delays responses the way a real network would.
//
// The mock is reached two ways:
//   - [MockTransport] serves requests in-process as an [http.RoundTripper] (mock mode)
//   - [Serve] runs it as a standalone HTTP server until its context is canceled
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
