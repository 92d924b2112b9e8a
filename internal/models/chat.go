package models

import "time"

// ChatMessage сообщение пользователя и ответ ассистента,
// сохраняемые в истории чата.
type ChatMessage struct {
	ID        string    `json:"message_id"`
	UserUID   string    `json:"user_id,omitempty"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}
