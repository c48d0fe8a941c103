package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"memory_webapp/internal/domain"
	"memory_webapp/internal/game"
	"memory_webapp/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender отправка сообщений, *tgbotapi.BotAPI подходит
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// LeaderboardSource таблица лидеров для команды /top
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, difficulty string, limit int) ([]domain.LeaderboardEntry, error)
}

// Bot шлет итоги раундов в служебные чаты и отвечает на /top
type Bot struct {
	api     *tgbotapi.BotAPI
	sender  Sender
	chatIDs []int64
	board   LeaderboardSource

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	log    *slog.Logger
}

// New авторизует бота по токену
func New(token string, chatIDs []int64, board LeaderboardSource) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := NewWithSender(api, chatIDs, board)
	b.api = api
	b.log.Info("bot authorized", "username", api.Self.UserName)
	return b, nil
}

// NewWithSender бот без цикла команд, только уведомления
func NewWithSender(sender Sender, chatIDs []int64, board LeaderboardSource) *Bot {
	return &Bot{
		sender:  sender,
		chatIDs: chatIDs,
		board:   board,
		stopCh:  make(chan struct{}),
		log:     logger.Component("bot"),
	}
}

// Report отправляет итог раунда во все служебные чаты
func (b *Bot) Report(ctx context.Context, s game.Summary) error {
	if len(b.chatIDs) == 0 {
		return nil
	}

	text := formatSummary(s)
	var errs []error
	for _, chatID := range b.chatIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = "HTML"
		if _, err := b.sender.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// Start запускает прослушивание команд, блокируется до Stop
func (b *Bot) Start() {
	if b.api == nil {
		return
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop останавливает цикл команд и ждет обработчики
func (b *Bot) Stop() {
	b.once.Do(func() {
		close(b.stopCh)
		if b.api != nil {
			b.api.StopReceivingUpdates()
		}
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var response string
	switch msg.Command() {
	case "start", "help":
		response = helpMessage
	case "top":
		response = b.topMessage(ctx, msg.CommandArguments())
	default:
		response = "Неизвестная команда. /help"
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.sender.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

const helpMessage = `<b>Memory</b>

/top [Easy|Normal|Hard] - лучшие результаты`

func (b *Bot) topMessage(ctx context.Context, args string) string {
	if b.board == nil {
		return "Таблица лидеров недоступна"
	}

	d, ok := game.ParseDifficulty(strings.TrimSpace(args))
	if !ok {
		return "Сложность: Easy, Normal или Hard"
	}

	entries, err := b.board.Leaderboard(ctx, string(d), 10)
	if err != nil {
		b.log.Error("leaderboard for bot failed", "error", err)
		return "Ошибка, попробуйте позже"
	}
	if len(entries) == 0 {
		return fmt.Sprintf("<b>%s</b>: результатов пока нет", d)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Топ %s</b>\n\n", d)
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d. <code>%s</code> - %d сек, ошибок %d\n",
			e.Rank, html.EscapeString(e.UserID), e.TimeTaken, e.Failed)
	}
	return sb.String()
}

func formatSummary(s game.Summary) string {
	return fmt.Sprintf("<b>Раунд завершен</b>\nИгрок: <code>%s</code>\nСложность: %s\nВремя: %d сек\nОшибок: %d\n%s",
		html.EscapeString(s.UserID),
		html.EscapeString(s.Difficulty),
		s.TimeTaken,
		s.Failed,
		s.GameDate.UTC().Format(time.RFC3339),
	)
}
