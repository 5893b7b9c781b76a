package types

import (
	"time"
)

type User struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Image     string    `json:"image,omitempty"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Thread is the persistent context of a two-party direct conversation.
// Membership is immutable; the thread is destroyed when the friendship
// backing it ends.
type Thread struct {
	Id            string    `json:"id"`
	UserA         string    `json:"user_a"`
	UserB         string    `json:"user_b"`
	LastMessageId string    `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

type DirectMessage struct {
	Id         string    `json:"id"`
	ThreadId   string    `json:"thread_id"`
	SenderId   string    `json:"sender_id"`
	ReceiverId string    `json:"receiver_id"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

type Group struct {
	Id            string               `json:"id"`
	Name          string               `json:"name"`
	AdminId       string               `json:"admin_id"`
	Members       []string             `json:"members"`
	JoinedAt      map[string]time.Time `json:"joined_at"`
	MaxMembers    int                  `json:"max_members"`
	LastMessageId string               `json:"last_message_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at,omitempty"`
}

type GroupMessage struct {
	Id        string    `json:"id"`
	GroupId   string    `json:"group_id"`
	SenderId  string    `json:"sender_id"`
	Text      string    `json:"text,omitempty"`
	Image     string    `json:"image,omitempty"`
	ReadBy    []string  `json:"read_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Invitation struct {
	Id         string    `json:"id"`
	GroupId    string    `json:"group_id"`
	SenderId   string    `json:"sender_id"`
	ReceiverId string    `json:"receiver_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}
