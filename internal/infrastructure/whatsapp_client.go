package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/protobuf/proto"

	"github.com/yourusername/vidbot/internal/domain"
	"github.com/yourusername/vidbot/pkg/logger"
)

const (
	chatCacheTTL       = time.Hour
	groupLookupWait    = 2 * time.Second
	groupLookupTimeout = 15 * time.Second
)

// ErrSessionNotStarted is returned when sending before Start succeeded
var ErrSessionNotStarted = errors.New("whatsapp session not started")

// WhatsAppClient is the SessionClient and Messenger backed by whatsmeow
type WhatsAppClient struct {
	config   *domain.SessionConfig
	chats    domain.ChatRepository
	logger   *zap.Logger
	waLogger waLog.Logger

	mu        sync.RWMutex
	container *sqlstore.Container
	client    *whatsmeow.Client
	sink      func(domain.SessionEvent)

	// group name lookups run off the event handler; the handler waits at
	// most lookupWait for an uncached group
	lookups    singleflight.Group
	lookupWait time.Duration
	fetchGroup func(jid types.JID) (string, error)
}

// NewWhatsAppClient creates a new WhatsApp client
func NewWhatsAppClient(config *domain.SessionConfig, chats domain.ChatRepository, log *zap.Logger) *WhatsAppClient {
	if log == nil {
		log = zap.NewNop()
	}
	w := &WhatsAppClient{
		config:     config,
		chats:      chats,
		logger:     log,
		waLogger:   logger.NewWhatsAppAdapter(log, "whatsmeow"),
		lookupWait: groupLookupWait,
	}
	w.fetchGroup = w.fetchGroupName
	return w
}

// Start opens the device store and connects. An unpaired device gets a QR
// channel whose codes are forwarded to sink.
func (w *WhatsAppClient) Start(ctx context.Context, sink func(domain.SessionEvent)) error {
	container, err := w.openStore(ctx)
	if err != nil {
		return err
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to load device: %w", err)
	}

	client := whatsmeow.NewClient(device, w.waLogger.Sub("Client"))
	client.AddEventHandler(w.handleEvent)

	w.mu.Lock()
	w.client = client
	w.sink = sink
	w.mu.Unlock()

	if client.Store.ID == nil {
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("failed to get QR channel: %w", err)
		}
		if err := client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		go w.consumeQR(qrChan)
		return nil
	}

	if err := client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

// Stop disconnects the current client
func (w *WhatsAppClient) Stop() {
	w.mu.Lock()
	client := w.client
	w.client = nil
	w.mu.Unlock()

	if client != nil {
		client.Disconnect()
	}
}

func (w *WhatsAppClient) openStore(ctx context.Context) (*sqlstore.Container, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.container != nil {
		return w.container, nil
	}

	if err := os.MkdirAll(filepath.Dir(w.config.StorePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	container, err := sqlstore.New(ctx, "sqlite3", "file:"+w.config.StorePath+"?_foreign_keys=on", w.waLogger.Sub("Database"))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	w.container = container
	return container, nil
}

func (w *WhatsAppClient) consumeQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			w.emit(domain.SessionEvent{Kind: domain.EventQRCode, QRCode: item.Code})
		case "success":
			return
		case "timeout":
			w.emit(domain.SessionEvent{Kind: domain.EventDisconnected, Reason: "QR code timed out", LoggedOut: true})
			return
		default:
			w.logger.Warn("QR channel event", zap.String("event", item.Event), zap.Error(item.Error))
		}
	}
}

func (w *WhatsAppClient) emit(evt domain.SessionEvent) {
	w.mu.RLock()
	sink := w.sink
	w.mu.RUnlock()
	if sink != nil {
		sink(evt)
	}
}

func (w *WhatsAppClient) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		chatName := w.chatName(v.Info)
		msg, ok := toIncomingMessage(v, chatName)
		if !ok {
			return
		}
		w.emit(domain.SessionEvent{Kind: domain.EventMessage, Message: &msg})
	case *events.PairSuccess:
		w.logger.Info("Device paired", zap.String("jid", v.ID.String()))
		w.emit(domain.SessionEvent{Kind: domain.EventAuthenticating})
	case *events.Connected:
		go w.warmGroups()
		w.emit(domain.SessionEvent{Kind: domain.EventReady})
	case *events.LoggedOut:
		w.emit(domain.SessionEvent{Kind: domain.EventDisconnected, Reason: fmt.Sprintf("logged out (%v)", v.Reason), LoggedOut: true})
	case *events.StreamReplaced:
		w.emit(domain.SessionEvent{Kind: domain.EventDisconnected, Reason: "session opened elsewhere"})
	case *events.Disconnected:
		w.emit(domain.SessionEvent{Kind: domain.EventDisconnected, Reason: "connection lost"})
	}
}

// chatName resolves the conversation name. Group names come from the chat
// cache; a stale entry is returned as is while it refreshes in the
// background, and a missing one is waited for at most lookupWait.
func (w *WhatsAppClient) chatName(info types.MessageInfo) string {
	if !info.IsGroup {
		return info.PushName
	}

	chatID := info.Chat.String()
	cached, err := w.chats.GetChat(chatID)
	if err != nil {
		w.logger.Warn("Failed to read chat cache", zap.String("chat_id", chatID), zap.Error(err))
	}
	if cached != nil && !cached.IsStale(chatCacheTTL) {
		return cached.Name
	}

	jid := info.Chat
	result := w.lookups.DoChan(chatID, func() (interface{}, error) {
		return w.fetchGroup(jid)
	})
	if cached != nil {
		return cached.Name
	}

	timer := time.NewTimer(w.lookupWait)
	defer timer.Stop()

	select {
	case res := <-result:
		if res.Err != nil {
			return ""
		}
		return res.Val.(string)
	case <-timer.C:
		w.logger.Warn("Group name not resolved in time", zap.String("chat_id", chatID), zap.Duration("wait", w.lookupWait))
		return ""
	}
}

// fetchGroupName asks the server for a group's subject and caches it
func (w *WhatsAppClient) fetchGroupName(jid types.JID) (string, error) {
	client, err := w.current()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), groupLookupTimeout)
	defer cancel()

	group, err := client.GetGroupInfo(ctx, jid)
	if err != nil {
		w.logger.Warn("Failed to fetch group info", zap.String("chat_id", jid.String()), zap.Error(err))
		return "", err
	}

	w.cacheGroup(jid.String(), group.Name)
	return group.Name, nil
}

// warmGroups caches the names of every joined group after a connect
func (w *WhatsAppClient) warmGroups() {
	client, err := w.current()
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), groupLookupTimeout)
	defer cancel()

	groups, err := client.GetJoinedGroups(ctx)
	if err != nil {
		w.logger.Warn("Failed to list joined groups", zap.Error(err))
		return
	}
	for _, group := range groups {
		w.cacheGroup(group.JID.String(), group.Name)
	}
	w.logger.Debug("Cached group names", zap.Int("count", len(groups)))
}

func (w *WhatsAppClient) cacheGroup(chatID, name string) {
	if err := w.chats.SaveChat(&domain.ChatInfo{ChatID: chatID, Name: name, IsGroup: true}); err != nil {
		w.logger.Warn("Failed to cache chat", zap.String("chat_id", chatID), zap.Error(err))
	}
}

func (w *WhatsAppClient) current() (*whatsmeow.Client, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.client == nil {
		return nil, ErrSessionNotStarted
	}
	return w.client, nil
}

// Reply sends text to the chat of msg, quoting it
func (w *WhatsAppClient) Reply(ctx context.Context, msg domain.IncomingMessage, text string) error {
	client, err := w.current()
	if err != nil {
		return err
	}
	to, err := types.ParseJID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.ChatID, err)
	}

	out := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(text),
			ContextInfo: quoteContext(msg.ID, msg.SenderID, msg.Body),
		},
	}
	_, err = client.SendMessage(ctx, to, out)
	return err
}

// SendMedia uploads data and sends it as a video message
func (w *WhatsAppClient) SendMedia(ctx context.Context, chatID string, data []byte, opts domain.MediaOptions) error {
	client, err := w.current()
	if err != nil {
		return err
	}
	to, err := types.ParseJID(chatID)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	uploaded, err := client.Upload(ctx, data, whatsmeow.MediaVideo)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	video := &waE2E.VideoMessage{
		URL:           proto.String(uploaded.URL),
		DirectPath:    proto.String(uploaded.DirectPath),
		MediaKey:      uploaded.MediaKey,
		Mimetype:      proto.String(opts.MimeType),
		FileEncSHA256: uploaded.FileEncSHA256,
		FileSHA256:    uploaded.FileSHA256,
		FileLength:    proto.Uint64(uploaded.FileLength),
		Caption:       proto.String(opts.Caption),
	}
	if opts.QuoteID != "" {
		video.ContextInfo = quoteContext(opts.QuoteID, opts.QuoteFrom, "")
	}

	_, err = client.SendMessage(ctx, to, &waE2E.Message{VideoMessage: video})
	return err
}

func quoteContext(stanzaID, participant, body string) *waE2E.ContextInfo {
	if stanzaID == "" {
		return nil
	}
	info := &waE2E.ContextInfo{StanzaID: proto.String(stanzaID)}
	if participant != "" {
		info.Participant = proto.String(participant)
	}
	if body != "" {
		info.QuotedMessage = &waE2E.Message{Conversation: proto.String(body)}
	}
	return info
}

// toIncomingMessage converts a whatsmeow message event. Own messages are
// tagged as self echoes. Non-text messages are skipped.
func toIncomingMessage(evt *events.Message, chatName string) (domain.IncomingMessage, bool) {
	body := messageText(evt.Message)
	if body == "" {
		return domain.IncomingMessage{}, false
	}

	via := domain.ViaNormal
	if evt.Info.IsFromMe {
		via = domain.ViaSelfEcho
	}

	return domain.IncomingMessage{
		ID:                evt.Info.ID,
		Body:              body,
		ChatID:            evt.Info.Chat.String(),
		ChatName:          chatName,
		IsGroup:           evt.Info.IsGroup,
		SenderID:          evt.Info.Sender.ToNonAD().String(),
		SenderDisplayName: evt.Info.PushName,
		FromMe:            evt.Info.IsFromMe,
		ReceivedVia:       via,
		Timestamp:         evt.Info.Timestamp,
	}, true
}

// messageText returns the text of a plain or extended text message
func messageText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if text := msg.GetConversation(); text != "" {
		return strings.TrimSpace(text)
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return strings.TrimSpace(ext.GetText())
	}
	return ""
}
