package notification

import "errors"

// Template names a notification layout
type Template string

const (
	TemplateVerificationCode  Template = "verification_code"
	TemplateWelcome           Template = "welcome"
	TemplatePasswordResetCode Template = "password_reset_code"
	TemplatePasswordChanged   Template = "password_changed"
)

var (
	// ErrQueueFull is returned by Enqueue when every queue slot is taken
	ErrQueueFull = errors.New("notification queue is full")
	// ErrDispatcherStopped is returned by Enqueue after Stop
	ErrDispatcherStopped = errors.New("notification dispatcher stopped")
)

// Message is one outbound notification. Data feeds the template.
type Message struct {
	To       string
	Name     string
	Template Template
	Data     map[string]any
}

// Email is a rendered message ready for a Sender
type Email struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}
