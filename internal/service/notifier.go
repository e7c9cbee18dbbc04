package service

import (
	"context"
	"fmt"

	"meowchi_miniapp/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type NopNotifier struct{}

func (NopNotifier) NotifyClaim(context.Context, int64, *model.ClaimResult) error {
	return nil
}

// TelegramNotifier messages the user through the bot after a claim commits.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramNotifier(botToken string) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(botToken, tgbotapi.APIEndpoint)
}

func NewTelegramNotifierWithEndpoint(botToken, endpoint string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(botToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	return &TelegramNotifier{
		bot: bot,
	}, nil
}

func (n *TelegramNotifier) NotifyClaim(ctx context.Context, userID int64, result *model.ClaimResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(userID, fmt.Sprintf(
		"Meow! Your daily discount for %s is reserved.\nClaim: %s",
		result.Day, result.ClaimID,
	))

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send claim message: %w", err)
	}
	return nil
}
