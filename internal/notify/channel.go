// Package notify sends match conversations to the Discord gateway. The bot
// core never talks to Discord directly: it issues NATS requests that the
// gateway answers once the thread operation is done.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"
	"github.com/wukrit/fightrise-bot-sub001/pkg/attr"
)

// Gateway subjects.
const (
	SubjectCreateConversation = "discord.thread.create.v1"
	SubjectPostPrompt         = "discord.thread.prompt.v1"
	SubjectAddParticipant     = "discord.thread.member.add.v1"
	SubjectArchive            = "discord.thread.archive.v1"
	SubjectDeleteConversation = "discord.thread.delete.v1"
)

var (
	// ErrUnavailable means no gateway instance answered.
	ErrUnavailable = errors.New("notify: gateway unavailable")
	// ErrRejected means the gateway answered with a failure.
	ErrRejected = errors.New("notify: request rejected")
)

// ButtonStyle mirrors Discord's button styles.
type ButtonStyle int

const (
	ButtonPrimary   ButtonStyle = 1
	ButtonSecondary ButtonStyle = 2
	ButtonSuccess   ButtonStyle = 3
	ButtonDanger    ButtonStyle = 4
)

// Button is an interactive component on a prompt.
type Button struct {
	CustomID string      `json:"custom_id"`
	Label    string      `json:"label"`
	Style    ButtonStyle `json:"style"`
}

// Prompt is a message with optional buttons.
type Prompt struct {
	Content string   `json:"content"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Channel is the notification surface used by the match service.
type Channel interface {
	CreateConversation(ctx context.Context, channelID, name string) (string, error)
	PostPrompt(ctx context.Context, conversationID string, prompt Prompt) error
	AddParticipant(ctx context.Context, conversationID, userID string) error
	Archive(ctx context.Context, conversationID string) error
	DeleteConversation(ctx context.Context, conversationID string) error
}

type requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

type request struct {
	ChannelID      string  `json:"channel_id,omitempty"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Name           string  `json:"name,omitempty"`
	UserID         string  `json:"user_id,omitempty"`
	Prompt         *Prompt `json:"prompt,omitempty"`
}

type reply struct {
	OK             bool   `json:"ok"`
	ConversationID string `json:"conversation_id"`
	Error          string `json:"error"`
}

// NATSChannel implements Channel with NATS request/reply.
type NATSChannel struct {
	conn    requester
	timeout time.Duration
	logger  *slog.Logger
}

var _ Channel = (*NATSChannel)(nil)

// NewNATSChannel builds a channel over conn. A zero timeout means 5s.
func NewNATSChannel(conn *nats.Conn, timeout time.Duration, logger *slog.Logger) *NATSChannel {
	return newChannel(conn, timeout, logger)
}

func newChannel(conn requester, timeout time.Duration, logger *slog.Logger) *NATSChannel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSChannel{conn: conn, timeout: timeout, logger: logger}
}

// CreateConversation opens a thread under channelID and returns its id.
func (c *NATSChannel) CreateConversation(ctx context.Context, channelID, name string) (string, error) {
	r, err := c.do(ctx, SubjectCreateConversation, request{ChannelID: channelID, Name: name})
	if err != nil {
		return "", err
	}
	if r.ConversationID == "" {
		return "", fmt.Errorf("%w: gateway returned no conversation id", ErrRejected)
	}
	return r.ConversationID, nil
}

// PostPrompt posts a message into a conversation.
func (c *NATSChannel) PostPrompt(ctx context.Context, conversationID string, prompt Prompt) error {
	_, err := c.do(ctx, SubjectPostPrompt, request{ConversationID: conversationID, Prompt: &prompt})
	return err
}

// AddParticipant adds a user to a conversation.
func (c *NATSChannel) AddParticipant(ctx context.Context, conversationID, userID string) error {
	_, err := c.do(ctx, SubjectAddParticipant, request{ConversationID: conversationID, UserID: userID})
	return err
}

// Archive locks a finished conversation.
func (c *NATSChannel) Archive(ctx context.Context, conversationID string) error {
	_, err := c.do(ctx, SubjectArchive, request{ConversationID: conversationID})
	return err
}

// DeleteConversation removes a conversation. Used to clean up a thread that
// could not be bound to its match.
func (c *NATSChannel) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := c.do(ctx, SubjectDeleteConversation, request{ConversationID: conversationID})
	return err
}

func (c *NATSChannel) do(ctx context.Context, subject string, req request) (*reply, error) {
	payload, err := sonic.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("notify: encode %s: %w", subject, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			err = fmt.Errorf("%w: %s", ErrUnavailable, subject)
		} else {
			err = fmt.Errorf("notify: request %s: %w", subject, err)
		}
		c.logger.WarnContext(ctx, "gateway request failed",
			attr.String("subject", subject),
			attr.Error(err),
		)
		return nil, err
	}

	var r reply
	if err := sonic.Unmarshal(msg.Data, &r); err != nil {
		return nil, fmt.Errorf("notify: decode %s reply: %w", subject, err)
	}
	if !r.OK {
		return nil, fmt.Errorf("%w: %s: %s", ErrRejected, subject, r.Error)
	}
	return &r, nil
}
