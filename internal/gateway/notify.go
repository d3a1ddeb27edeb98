package gateway

// NoticeKind classifies a user-facing notification.
type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeWarning NoticeKind = "warning"
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
)

// SignInView names the view users are sent to when their session can no longer be refreshed.
const SignInView = "sign-in"

// ExpiredMessage is shown when a refresh fails and the session is dropped.
const ExpiredMessage = "session expired, please sign in again"

// Notifier surfaces short messages to the user.
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

// Navigator moves an interactive client between views.
type Navigator interface {
	Current() string
	Navigate(view string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(kind NoticeKind, message string)

func (f NotifierFunc) Notify(kind NoticeKind, message string) { f(kind, message) }
