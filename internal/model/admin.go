package model

import "time"

type Admin struct {
	TelegramID int64
	CreatedAt  time.Time
}
