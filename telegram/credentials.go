// Copyright (c) 2025 Eternadex Authors

package telegram

import (
	"fmt"
	"os"
)

type Secrets struct {
	BotToken string `json:"bot_token"`

	ChatID int64 `json:"chat_id"`
}

func (v *Secrets) Check() error {
	if len(v.BotToken) == 0 {
		return fmt.Errorf("telegram bot token cannot be empty: %w", os.ErrInvalid)
	}
	if v.ChatID == 0 {
		return fmt.Errorf("telegram chat id cannot be zero: %w", os.ErrInvalid)
	}
	return nil
}

func (v *Secrets) Clone() *Secrets {
	c := *v
	return &c
}
