package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/flatwatch/realty-bot/internal/domain/models"
	"github.com/flatwatch/realty-bot/internal/services"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	sent       []botApi.Chattable
	photosFail bool
}

func (m *mockSender) Send(c botApi.Chattable) (botApi.Message, error) {
	if _, isPhoto := c.(botApi.PhotoConfig); isPhoto && m.photosFail {
		return botApi.Message{}, errors.New("media unavailable")
	}
	m.sent = append(m.sent, c)
	return botApi.Message{}, nil
}

func (m *mockSender) lastText() string {
	if len(m.sent) == 0 {
		return ""
	}
	msg, ok := m.sent[len(m.sent)-1].(botApi.MessageConfig)
	if !ok {
		return ""
	}
	return msg.Text
}

type mockUserRepo struct {
	users []models.User
}

func (m *mockUserRepo) Upsert(_ context.Context, user models.User) error {
	m.users = append(m.users, user)
	return nil
}

type mockForcer struct {
	summary services.CycleSummary
	err     error
}

func (m *mockForcer) Force(_ context.Context) (services.CycleSummary, error) {
	return m.summary, m.err
}

func commandMessage(chatID int64, text string) *botApi.Message {

	length := strings.IndexByte(text, ' ')
	if length < 0 {
		length = len(text)
	}

	return &botApi.Message{
		Text:     text,
		Chat:     &botApi.Chat{ID: chatID, Type: "private"},
		From:     &botApi.User{ID: chatID},
		Entities: []botApi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func Test_SendListing_PhotoWithCaption(t *testing.T) {

	sender := &mockSender{}
	b := &Bot{sender: sender}

	err := b.SendListing(1, "нове оголошення", "https://cdn.example.com/1.jpg")
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	photo, ok := sender.sent[0].(botApi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "нове оголошення", photo.Caption)
}

func Test_SendListing_FallsBackToTextWhenPhotoFails(t *testing.T) {

	sender := &mockSender{photosFail: true}
	b := &Bot{sender: sender}

	err := b.SendListing(1, "нове оголошення", "https://cdn.example.com/broken.jpg")
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg, ok := sender.sent[0].(botApi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, "нове оголошення", msg.Text)
}

func Test_StartCommand_RegistersUserWithNotificationsEnabled(t *testing.T) {

	sender := &mockSender{}
	users := &mockUserRepo{}
	b := &Bot{sender: sender, users: users}

	b.handleMessage(commandMessage(42, "/start"))

	require.Len(t, users.users, 1)
	assert.Equal(t, int64(42), users.users[0].ID)
	assert.True(t, users.users[0].NotificationsEnabled)
	assert.NotEmpty(t, sender.lastText())
}

func Test_ForceCommand_RejectsNonAdmin(t *testing.T) {

	sender := &mockSender{}
	forcer := &mockForcer{summary: services.CycleSummary{Found: 5}}
	b := &Bot{sender: sender, adminChatID: 1, coordinator: forcer}

	b.handleMessage(commandMessage(42, "/force"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.lastText(), "адміністратору")
}

func Test_ForceCommand_AdminGetsSummary(t *testing.T) {

	sender := &mockSender{}
	forcer := &mockForcer{summary: services.CycleSummary{Groups: 2, Found: 5, Stored: 3, Notified: 1}}
	b := &Bot{sender: sender, adminChatID: 1, coordinator: forcer}

	b.handleMessage(commandMessage(1, "/force"))

	assert.Contains(t, sender.lastText(), "Знайдено: 5")
	assert.Contains(t, sender.lastText(), "Надіслано: 1")
}

func Test_ForceCommand_BeforeCoordinatorStartReportsIt(t *testing.T) {

	sender := &mockSender{}
	forcer := &mockForcer{err: services.ErrNotStarted}
	b := &Bot{sender: sender, adminChatID: 1, coordinator: forcer}

	b.handleMessage(commandMessage(1, "/force"))

	assert.Contains(t, sender.lastText(), "не запущено")
}

func Test_UnknownCommandGetsReply(t *testing.T) {

	sender := &mockSender{}
	b := &Bot{sender: sender}

	b.handleMessage(commandMessage(1, "/abracadabra"))

	assert.Equal(t, "Невідома команда!", sender.lastText())
}
