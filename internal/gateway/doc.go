// Package gateway is the single outbound HTTP pipeline to the ZipDrop API.
//
// Every request is decorated with the session's bearer token and the client identification headers
// ([ClientHeader], [RequestedWithHeader]). Responses pass through [Gateway.HandleResponse], which
// owns the refresh protocol:
//
//   - A 401 on a request not marked [Request.Retry] starts a refresh, or joins the pending queue
//     when one is already in flight. Only one refresh call is outstanding per [Gateway].
//   - A successful refresh stores the new token through [Session.SetToken], wakes queued callers in
//     the order they arrived and replays every request once, marked Retry.
//   - A failed refresh expires the session, fails every queued caller with the same error, and in
//     interactive mode raises a [Notifier] message and sends the [Navigator] to [SignInView].
//   - A 401 on a Retry request, and every other non-2xx status, is returned as an [*Error].
//     Responses with status 500 and above are logged at error level.
package gateway
