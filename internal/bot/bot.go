package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/flatwatch/realty-bot/internal/events"
	"github.com/flatwatch/realty-bot/internal/logger"
	"github.com/flatwatch/realty-bot/internal/services"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type sender interface {
	Send(c botApi.Chattable) (botApi.Message, error)
}

type userRepository interface {
	Upsert(ctx context.Context, user models.User) error
}

type cycleForcer interface {
	Force(ctx context.Context) (services.CycleSummary, error)
}

type statusProvider interface {
	Snapshot(ctx context.Context) (services.StatusSnapshot, error)
}

// forceTimeout bounds how long /force waits for the triggered cycle.
const forceTimeout = 15 * time.Minute

// Bot is the operator and delivery surface: it serves /start, /force and
// /status in private chats, relays matched listings to users, and sends the
// admin a digest after every completed cycle.
type Bot struct {
	api         *botApi.BotAPI
	sender      sender
	bus         EventBus.Bus
	users       userRepository
	adminChatID int64

	coordinator cycleForcer
	status      statusProvider
}

func NewBot(token string, adminChatID int64, bus EventBus.Bus, users userRepository) (*Bot, error) {

	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	err = botApi.SetLogger(log.StandardLogger())
	if err != nil {
		return nil, err
	}

	if bus == nil {
		return nil, errors.New("bus is nil")
	}

	if users == nil {
		return nil, errors.New("users repository is nil")
	}

	createdBot := &Bot{api: api, sender: api, bus: bus, users: users, adminChatID: adminChatID}

	err = bus.Subscribe(events.CycleCompletedTopic, createdBot.onCycleCompleted)
	if err != nil {
		return nil, err
	}
	return createdBot, nil
}

// SetCoordinator and SetStatus break the construction cycle: the bot is the
// notifier's delivery channel, the notifier feeds the coordinator, and the
// coordinator is what /force needs.
func (b *Bot) SetCoordinator(coordinator cycleForcer) {
	b.coordinator = coordinator
}

func (b *Bot) SetStatus(status statusProvider) {
	b.status = status
}

func (b *Bot) Run() {

	updateConfig := botApi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)

	for update := range updates {

		if update.Message == nil {
			continue
		}

		if update.Message.Chat.IsGroup() || update.Message.Chat.IsSuperGroup() {
			continue
		}

		go b.handleMessage(update.Message)
	}
}

func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

// SendListing delivers one matched listing. A failed photo send falls back to
// plain text, so a broken media URL never loses the notification.
func (b *Bot) SendListing(chatID int64, text string, photoURL string) error {

	if photoURL != "" {
		photo := botApi.NewPhoto(chatID, botApi.FileURL(photoURL))
		photo.Caption = text
		_, err := b.sender.Send(photo)
		if err == nil {
			return nil
		}
		log.Warnf("photo send to %d failed, falling back to text: %v", chatID, err)
	}

	_, err := b.sender.Send(botApi.NewMessage(chatID, text))
	return err
}

func (b *Bot) handleMessage(message *botApi.Message) {

	cmd := message.Command()
	if cmd == "" {
		b.reply(message.Chat.ID, "Очікується команда. Доступні: /force, /status")
		return
	}

	switch cmd {
	case "start":
		b.handleStart(message.Chat.ID)
	case "force":
		b.handleForce(message.Chat.ID)
	case "status":
		b.handleStatus(message.Chat.ID)
	default:
		b.reply(message.Chat.ID, "Невідома команда!")
	}
}

func (b *Bot) handleStart(chatID int64) {

	user := models.User{ID: chatID, NotificationsEnabled: true, CreatedAt: time.Now()}
	if err := b.users.Upsert(context.Background(), user); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to upsert user %d: %v", chatID, err)
		b.reply(chatID, "Внутрішня помилка!")
		return
	}

	b.reply(chatID, "Вітаю! Я надсилатиму нові оголошення за вашими збереженими пошуками.")
}

func (b *Bot) handleForce(chatID int64) {

	if chatID != b.adminChatID {
		b.reply(chatID, "Ця команда доступна лише адміністратору.")
		return
	}
	if b.coordinator == nil {
		b.reply(chatID, "Сервіс ще не запущено.")
		return
	}

	b.reply(chatID, "Запускаю позачерговий цикл...")

	ctx, cancel := context.WithTimeout(context.Background(), forceTimeout)
	defer cancel()

	summary, err := b.coordinator.Force(ctx)
	if err != nil {
		if errors.Is(err, services.ErrNotStarted) {
			b.reply(chatID, "Сервіс ще не запущено.")
		} else {
			log.Errorf("forced cycle failed: %v", err)
			b.reply(chatID, "Внутрішня помилка!")
		}
		return
	}

	b.reply(chatID, formatSummary(summary.Groups, summary.Found, summary.Stored,
		summary.Notified, summary.Duration))
}

func (b *Bot) handleStatus(chatID int64) {

	if b.status == nil {
		b.reply(chatID, "Сервіс ще не запущено.")
		return
	}

	snapshot, err := b.status.Snapshot(context.Background())
	if err != nil {
		log.Errorf("failed to build status snapshot: %v", err)
		b.reply(chatID, "Внутрішня помилка!")
		return
	}

	b.reply(chatID, snapshot.FormatText())
}

func (b *Bot) onCycleCompleted(event events.CycleCompleted) {

	if b.adminChatID == 0 {
		return
	}
	b.reply(b.adminChatID, "Цикл завершено.\n"+
		formatSummary(event.Groups, event.Found, event.Stored, event.Notified, event.Duration))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.sender.Send(botApi.NewMessage(chatID, text)); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("error occured while sending message: %v", err)
	}
}

func formatSummary(groups, found, stored, notified int, duration time.Duration) string {
	return fmt.Sprintf("Груп: %d\nЗнайдено: %d\nЗбережено: %d\nНадіслано: %d\nТривалість: %v",
		groups, found, stored, notified, duration.Round(time.Second))
}
