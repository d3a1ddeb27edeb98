// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [SignInView] : sign in or register, with local validation and a password strength meter
//  2. [ProjectListView] : browse projects, publish/hide, delete, open in the browser
//  3. [ProjectDetailView] : one project's size, file count, views and public URL
//
// Protected views require a session; [Model] redirects to the sign-in view otherwise, and away
// from it once signed in.
//
// The [Bridge] implements the gateway's Notifier and Navigator. Notices sent from any goroutine
// become toasts that expire after [ToastTTL], and a failed token refresh sends the user back to
// the sign-in view.
//
// The theme (dark or light) is persisted under models.ThemeKey.
package ui
