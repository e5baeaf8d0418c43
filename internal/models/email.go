package models

// EmailMessage: письмо, публикуемое в очередь и отправляемое воркером sender.
type EmailMessage struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}
