// Package alerts raises user-visible warnings for the display.
//
// A Notifier knows the relay the display is attached to. ConnectionClosed and
// PublishFailed build alerts carrying that context, hand them to a sink (the
// terminal UI's warning bar) and, when webhooks are configured, post them to
// Slack, Teams or a plain HTTP endpoint in the background. Delivery failures
// are logged only.
package alerts
