package levelroute

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"relaybot/internal/platform"
	logx "relaybot/pkg/logx"
)

// Gateway is the slice of the platform gateway the router needs.
type Gateway interface {
	FindChannelByName(ctx context.Context, tenantID, name string) (platform.ChannelRef, bool, error)
	Send(ctx context.Context, to platform.ChannelRef, out platform.Outgoing) (string, error)
	SendTransient(ctx context.Context, to platform.ChannelRef, text string, ttl time.Duration) error
	DeleteMessage(ctx context.Context, to platform.ChannelRef, messageID string) error
}

// Triage posts look like "#<level> <8-char code>[ note...]".
var postPattern = regexp.MustCompile(`^#(\d+)\s(.{8})(?:\s+([\s\S]*))?`)

const warnTTL = 5 * time.Second

// Bucket names double as the destination channel names, resolved by name
// inside the posting tenant.
const (
	BucketNormal = "help-normal"
	BucketLow    = "level-1-4"
	BucketMid    = "level-5-7"
	BucketHigh   = "level-8-10"
	BucketTop    = "level-11-15"
)

// Outcome reports what Route did with one triage post.
type Outcome struct {
	Matched   bool
	Level     int
	Bucket    string
	Forwarded bool
}

// Router classifies posts from the triage channel into level buckets and
// redirects them to the matching local channel.
type Router struct {
	gw  Gateway
	log logx.Logger
}

func New(gw Gateway, log logx.Logger) *Router {
	return &Router{gw: gw, log: log}
}

// Route processes one triage-channel post. The original post is always
// deleted afterwards, valid or not, to keep the triage channel clean.
func (r *Router) Route(ctx context.Context, msg *platform.Message) Outcome {
	origin := platform.ChannelRef{TenantID: msg.TenantID, ChannelID: msg.ChannelID}
	defer r.deletePost(ctx, origin, msg.ID)

	m := postPattern.FindStringSubmatch(msg.Text)
	if m == nil {
		r.warn(ctx, origin)
		return Outcome{}
	}

	level := parseLevel(m[1])
	bucket, ok := bucketFor(level)
	if !ok {
		r.warn(ctx, origin)
		return Outcome{Matched: true, Level: level}
	}

	out := Outcome{Matched: true, Level: level, Bucket: bucket}

	dest, found, err := r.gw.FindChannelByName(ctx, msg.TenantID, bucket)
	if err != nil || !found {
		// Known limitation: with no destination channel the content is
		// dropped while the original post is still deleted.
		r.log.Warn("level bucket channel missing; forward skipped",
			logx.String("tenant", msg.TenantID), logx.String("bucket", bucket), logx.Err(err))
		return out
	}

	code := m[2]
	note := m[3]

	fwd := platform.Outgoing{Text: code}
	if level > 0 {
		fwd.Embed = &platform.Embed{
			Title:       fmt.Sprintf("Level %d", level),
			Description: note,
			Color:       0x00aa00,
		}
	}
	if _, err := r.gw.Send(ctx, dest, fwd); err != nil {
		r.log.Warn("level forward failed",
			logx.String("tenant", msg.TenantID), logx.String("bucket", bucket), logx.Err(err))
		return out
	}
	out.Forwarded = true
	return out
}

func (r *Router) warn(ctx context.Context, origin platform.ChannelRef) {
	if err := r.gw.SendTransient(ctx, origin, "this level is not valid", warnTTL); err != nil {
		r.log.Debug("triage warning failed", logx.Err(err))
	}
}

func (r *Router) deletePost(ctx context.Context, origin platform.ChannelRef, messageID string) {
	if err := r.gw.DeleteMessage(ctx, origin, messageID); err != nil {
		r.log.Debug("triage post delete failed", logx.Err(err))
	}
}

func parseLevel(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
		if n > 1000 {
			return n
		}
	}
	return n
}

func bucketFor(level int) (string, bool) {
	switch {
	case level == 0:
		return BucketNormal, true
	case level >= 1 && level <= 4:
		return BucketLow, true
	case level >= 5 && level <= 7:
		return BucketMid, true
	case level >= 8 && level <= 10:
		return BucketHigh, true
	case level >= 11 && level <= 15:
		return BucketTop, true
	default:
		return "", false
	}
}
