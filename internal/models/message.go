package models

import "time"

// InboundMessage is a text message received on a tenant's connection.
type InboundMessage struct {
	ID        string    `json:"id"`
	ChatJID   string    `json:"chat_jid"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	FromMe    bool      `json:"from_me"`
}

// BulkMessage is one pre-rendered item of a bulk delivery batch.
type BulkMessage struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}
