// Package models defines domain entities and persistence interfaces for the ZipDrop client.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): structs decoded from and encoded to the remote API
//   - [Credentials] : email/password pair sent to login and register
//   - [AuthResponse] : token and user returned by login and register
//   - [User] : the authenticated account, held in memory only
//   - [Project] : an uploaded archive and its hosting metadata
//
// 2. Local state: values persisted on the client
//   - [ProjectOverride] : custom name/slug applied over API projects
//   - [Storage] : durable string key/value storage (token, theme)
package models
