// Package rules enforces local posting rules on watched channels: the
// friend-code channel accepts only eight-character posts, and an opted-in
// word-chain channel rejects posts ending in a forbidden rune.
package rules

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"relaybot/internal/platform"
	"relaybot/internal/store"
	logx "relaybot/pkg/logx"
)

const (
	warnTTL = 5 * time.Second

	codeLength = 8

	// Default forbidden word-chain terminals: hiragana and katakana "n".
	DefaultForbiddenRunes = "んン"
)

// Gateway is the moderation surface the rules need.
type Gateway interface {
	DeleteMessage(ctx context.Context, to platform.ChannelRef, messageID string) error
	SendTransient(ctx context.Context, to platform.ChannelRef, text string, ttl time.Duration) error
	SendDM(ctx context.Context, userID, text string) error
}

// Registrations resolves which channel a tenant opted in for word-chain play.
type Registrations interface {
	Registration(ctx context.Context, table, tenantID string) (store.Registration, bool, error)
}

type Config struct {
	// FriendCodeChannelID names the channel restricted to 8-character posts.
	// Empty disables the rule.
	FriendCodeChannelID string
	// ForbiddenRunes are the terminal runes the word-chain rule rejects.
	ForbiddenRunes string
}

// Engine applies every rule to inbound messages.
type Engine struct {
	gw        Gateway
	regs      Registrations
	cfg       Config
	forbidden map[rune]bool
	log       logx.Logger
}

func New(gw Gateway, regs Registrations, cfg Config, log logx.Logger) *Engine {
	if cfg.ForbiddenRunes == "" {
		cfg.ForbiddenRunes = DefaultForbiddenRunes
	}
	forbidden := make(map[rune]bool)
	for _, r := range cfg.ForbiddenRunes {
		forbidden[r] = true
	}
	return &Engine{gw: gw, regs: regs, cfg: cfg, forbidden: forbidden, log: log}
}

// Apply runs each rule against msg. Rules are independent; one rule's
// enforcement failure does not stop the others.
func (e *Engine) Apply(ctx context.Context, msg *platform.Message) {
	e.applyWordChain(ctx, msg)
	e.applyFriendCode(ctx, msg)
}

func (e *Engine) applyFriendCode(ctx context.Context, msg *platform.Message) {
	if e.cfg.FriendCodeChannelID == "" || msg.ChannelID != e.cfg.FriendCodeChannelID {
		return
	}
	if utf8.RuneCountInString(msg.Text) == codeLength {
		return
	}

	ref := platform.ChannelRef{TenantID: msg.TenantID, ChannelID: msg.ChannelID}
	if err := e.gw.DeleteMessage(ctx, ref, msg.ID); err != nil {
		e.log.Debug("friend-code delete failed", logx.String("message", msg.ID), logx.Err(err))
	}
	notice := msg.AuthorName + " please send only the 8-character code"
	if err := e.gw.SendTransient(ctx, ref, notice, warnTTL); err != nil {
		e.log.Debug("friend-code notice failed", logx.Err(err))
	}
}

func (e *Engine) applyWordChain(ctx context.Context, msg *platform.Message) {
	reg, ok, err := e.regs.Registration(ctx, store.NamespaceWordchain, msg.TenantID)
	if err != nil {
		e.log.Warn("word-chain lookup failed", logx.String("tenant", msg.TenantID), logx.Err(err))
		return
	}
	if !ok || reg.ChannelID != msg.ChannelID {
		return
	}

	text := strings.TrimSpace(msg.Text)
	last, size := utf8.DecodeLastRuneInString(text)
	if size == 0 || !e.forbidden[last] {
		return
	}

	ref := platform.ChannelRef{TenantID: msg.TenantID, ChannelID: msg.ChannelID}
	if err := e.gw.DeleteMessage(ctx, ref, msg.ID); err != nil {
		e.log.Debug("word-chain delete failed", logx.String("message", msg.ID), logx.Err(err))
	}
	if err := e.gw.SendDM(ctx, msg.AuthorID, "Words ending in \""+string(last)+"\" are not allowed here."); err != nil {
		e.log.Debug("word-chain notice failed", logx.String("author", msg.AuthorID), logx.Err(err))
	}
}
