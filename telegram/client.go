// Copyright (c) 2025 Eternadex Authors

// Package telegram implements a small alerting client used to report failed
// orders to a configured chat.
package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
)

type Client struct {
	bot *bot.Bot

	secrets *Secrets
}

func New(ctx context.Context, secrets *Secrets) (*Client, error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}
	b, err := bot.New(secrets.BotToken)
	if err != nil {
		return nil, err
	}
	c := &Client{
		bot:     b,
		secrets: secrets.Clone(),
	}
	return c, nil
}

func (c *Client) Close(ctx context.Context) {
	c.bot.Close(ctx)
}

// SendMessage delivers a timestamped alert to the configured chat.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	msg := time.Now().Format("2006-01-02 15:04:05 MST") + " " + text
	slog.Info("sending telegram alert", "message", text)

	m := &bot.SendMessageParams{
		ChatID: c.secrets.ChatID,
		Text:   msg,
	}
	if _, err := c.bot.SendMessage(ctx, m); err != nil {
		return err
	}
	return nil
}
