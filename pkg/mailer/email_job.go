package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// A job either names a Template, "universal" or a notification type such as
// "login_notification", with Data for it, or carries a ready Subject and body.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
