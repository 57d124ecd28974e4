package relay

import (
	"context"
	"sync"

	"relaybot/internal/platform"
)

// IdentityGateway is the slice of the platform gateway the identity cache needs.
type IdentityGateway interface {
	FindIdentity(ctx context.Context, to platform.ChannelRef, name string) (platform.Identity, bool, error)
	CreateIdentity(ctx context.Context, to platform.ChannelRef, name, avatarRef string) (platform.Identity, error)
}

// IdentityCache memoizes one broadcast identity per destination channel.
//
// Identities are created lazily on the first delivery to a channel and reused
// for the process lifetime; the display name is fixed per routing table.
type IdentityCache struct {
	gw   IdentityGateway
	name string

	mu        sync.Mutex
	byChannel map[string]platform.Identity
}

func NewIdentityCache(gw IdentityGateway, name string) *IdentityCache {
	return &IdentityCache{
		gw:        gw,
		name:      name,
		byChannel: map[string]platform.Identity{},
	}
}

// Ensure returns the channel's cached identity, looking it up or creating it
// on first use. The lock is held across the lookup so concurrent sends to the
// same channel cannot race a duplicate create.
func (c *IdentityCache) Ensure(ctx context.Context, to platform.ChannelRef, avatarRef string) (platform.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.byChannel[to.ChannelID]; ok {
		return id, nil
	}

	id, found, err := c.gw.FindIdentity(ctx, to, c.name)
	if err != nil {
		return platform.Identity{}, err
	}
	if !found {
		id, err = c.gw.CreateIdentity(ctx, to, c.name, avatarRef)
		if err != nil {
			return platform.Identity{}, err
		}
	}
	c.byChannel[to.ChannelID] = id
	return id, nil
}
