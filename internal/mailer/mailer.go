package mailer

// Message is a single outbound email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Mailer defines the interface for sending emails.
type Mailer interface {
	Send(msg Message) error
}
