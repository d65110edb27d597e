package models

import "time"

// Notification is a message for the external mailer: who receives it, which template
// renders it and the variables the template needs.
type Notification struct {
	ID            string         `json:"id"`
	Recipient     string         `json:"recipient"`
	RecipientName string         `json:"recipient_name"`
	TemplateKey   string         `json:"template_key"`
	Subject       string         `json:"subject"`
	Variables     map[string]any `json:"variables"`
	CreatedAt     time.Time      `json:"created_at"`
}

// OutboxTask is a persisted notification waiting for delivery.
type OutboxTask struct {
	ID          int64      `db:"id" json:"id"`
	Recipient   string     `db:"recipient" json:"recipient"`
	TemplateKey string     `db:"template_key" json:"template_key"`
	Payload     string     `db:"payload" json:"payload"`
	Status      string     `db:"status" json:"status"`
	RetryCount  int        `db:"retry_count" json:"retry_count"`
	LastError   *string    `db:"last_error" json:"last_error"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at"`
	NextRetryAt *time.Time `db:"next_retry_at" json:"next_retry_at"`
}
