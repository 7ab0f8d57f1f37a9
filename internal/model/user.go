package model

import "time"

// UserAccount binds an external chat identity to a Hoyolab session cookie
// and, optionally, the in-game uid queries should run against. A record
// without a cookie carries no usable session and is treated as absent by
// every consumer.
type UserAccount struct {
	UserID    string    `json:"userId"`
	Cookie    string    `json:"cookie,omitempty"`
	UID       string    `json:"uid,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a UserAccount) HasCookie() bool { return a.Cookie != "" }

func (a UserAccount) HasUID() bool { return a.UID != "" }
