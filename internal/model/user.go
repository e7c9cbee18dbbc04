package model

import "time"

type User struct {
	TelegramID       int64
	Username         string
	FirstName        string
	Points           int
	IsAdmin          bool
	RegistrationDate time.Time
	AuthDate         time.Time
}
