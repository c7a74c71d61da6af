package models

import "time"

// Channel, bir workspace içindeki mesaj kanalı.
// Workspace sınırı tenancy sınırıdır: kanal başka workspace'ten okunamaz/yazılamaz.
type Channel struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
}
