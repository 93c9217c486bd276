package domain

import "time"

// Channel is a configured WhatsApp number. Its first category is used as
// the default ticket category for messages arriving on it.
type Channel struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	Name       string    `json:"name"`
	Categories []string  `json:"categories"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DefaultCategory returns the first configured category, if any.
func (c *Channel) DefaultCategory() (string, bool) {
	if c == nil || len(c.Categories) == 0 {
		return "", false
	}
	return c.Categories[0], true
}
