// Package services implements the ZipDrop API operations on top of [gateway.Gateway].
//
// # Projects
//
// [ProjectService] lists, fetches, uploads, deletes and publishes projects. It keeps the last
// fetched list as a cache for [ProjectService.Get] and applies locally persisted custom names and
// slugs ([models.ProjectOverride]) to every project it returns.
//
// # Error Handling
//
// Failures are returned as [*Error], whose text is the server's message when it sent one and a
// per-operation fallback otherwise. The underlying [*gateway.Error] stays reachable with errors.As:
//   - [shared.ErrProjectNotFound] : the API answered 404
//   - [shared.ErrInvalidArchive] : the upload is not a .zip or .zipx file
//   - [shared.ErrSessionExpired] : the session could not be refreshed
//
// View tracking is analytics: its failures are logged and never returned.
//
// # Raw Access
//
// [APIService] sends arbitrary requests through the same gateway for debugging.
package services
