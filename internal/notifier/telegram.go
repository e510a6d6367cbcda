package notifier

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	tgbotapi "gopkg.in/telegram-bot-api.v4"
)

const maxMsgLength = 4096

// BotAPI is the slice of the telegram bot client the sender needs, so unit
// tests can substitute a fake.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotFactory builds a bot client for a company's token.
type BotFactory func(token string) (BotAPI, error)

// NewBotFactory returns the production factory: telegram-bot-api with a
// bounded HTTP timeout so a hung call cannot stall a dispatch worker.
func NewBotFactory(timeout time.Duration) BotFactory {
	return func(token string) (BotAPI, error) {
		return tgbotapi.NewBotAPIWithClient(token, &http.Client{Timeout: timeout})
	}
}

// TelegramSender sends HTML messages through per-company bots. Bots are
// cached per token since every send for a company reuses the same one.
type TelegramSender struct {
	factory BotFactory
	logger  *zap.Logger

	mu   sync.Mutex
	bots map[string]BotAPI
}

// NewTelegramSender creates the sender.
func NewTelegramSender(factory BotFactory, logger *zap.Logger) *TelegramSender {
	return &TelegramSender{
		factory: factory,
		logger:  logger,
		bots:    make(map[string]BotAPI),
	}
}

// Send delivers one message to a chat, splitting at the telegram message
// size limit.
func (s *TelegramSender) Send(token, chatID, text string) error {
	chat, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	bot, err := s.bot(token)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	for _, part := range splitLongMessage(text) {
		msg := tgbotapi.NewMessage(chat, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
	}
	return nil
}

func (s *TelegramSender) bot(token string) (BotAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bot, ok := s.bots[token]; ok {
		return bot, nil
	}
	bot, err := s.factory(token)
	if err != nil {
		return nil, err
	}
	s.bots[token] = bot
	return bot, nil
}

func splitLongMessage(message string) []string {
	if len(message) <= maxMsgLength {
		return []string{message}
	}

	var result []string
	for len(message) > maxMsgLength {
		splitIndex := maxMsgLength
		for splitIndex > 0 && message[splitIndex] != '\n' {
			splitIndex--
		}
		if splitIndex == 0 {
			splitIndex = maxMsgLength
		}

		result = append(result, message[:splitIndex])
		message = message[splitIndex:]
	}
	result = append(result, message)
	return result
}
