// Package notifications alerts operators about transfer outcomes.
//
// The default implementation posts to the ntfy topic configured under
// [notifications] and degrades to a no-op when no topic is set. Failures and
// rejections are always published; completed transfers only when
// notify_success is enabled.
package notifications
