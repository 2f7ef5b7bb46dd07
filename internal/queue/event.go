// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into an audit log.
package queue

// LoginQueueName is the durable queue login events are published to.
const LoginQueueName = "user.login"

// LoginEvent is published after every successful login. It carries enough
// for audit and analytics consumers without querying the primary database;
// session tokens and secrets are never included.
type LoginEvent struct {
    UserID     string `json:"user_id"`
    TenantID   uint64 `json:"tenant_id"`
    AppID      string `json:"app_id"`
    Role       string `json:"role"`
    NewUser    bool   `json:"new_user"`
    LoggedInAt string `json:"logged_in_at"`
}
