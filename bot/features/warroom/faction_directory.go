package warroom

import (
	"context"
	"fmt"
	"time"

	"guildwar/application"
	"guildwar/domain/entities"

	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"
)

const defaultDirectoryTTL = 5 * time.Minute

// FactionLoader reads one faction, nil when it does not exist
type FactionLoader func(ctx context.Context, tag string) (*entities.Faction, error)

type cachedFaction struct {
	faction   *entities.Faction
	fetchedAt time.Time
}

// FactionDirectory is a read-through cache of faction display details for announcements
type FactionDirectory struct {
	cache  *lru.Cache
	loader FactionLoader
	ttl    time.Duration
	now    func() time.Time
}

// NewFactionDirectory creates a directory holding at most size factions
func NewFactionDirectory(size int, loader FactionLoader) (*FactionDirectory, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create faction cache: %w", err)
	}
	return &FactionDirectory{
		cache:  cache,
		loader: loader,
		ttl:    defaultDirectoryTTL,
		now:    time.Now,
	}, nil
}

// UnitOfWorkLoader loads factions in a short read-only unit of work
func UnitOfWorkLoader(uowFactory application.UnitOfWorkFactory) FactionLoader {
	return func(ctx context.Context, tag string) (*entities.Faction, error) {
		uow := uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()
		return uow.FactionRepository().GetByTag(ctx, tag)
	}
}

// Lookup returns the faction, from cache while fresh
func (d *FactionDirectory) Lookup(ctx context.Context, tag string) (*entities.Faction, error) {
	if cached, ok := d.cache.Get(tag); ok {
		entry := cached.(cachedFaction)
		if d.now().Sub(entry.fetchedAt) < d.ttl {
			return entry.faction, nil
		}
	}

	faction, err := d.loader(ctx, tag)
	if err != nil {
		return nil, err
	}
	if faction != nil {
		d.cache.Add(tag, cachedFaction{faction: faction, fetchedAt: d.now()})
	}
	return faction, nil
}

// Label renders "Name [TAG]", falling back to the bare tag
func (d *FactionDirectory) Label(ctx context.Context, tag string) string {
	faction, err := d.Lookup(ctx, tag)
	if err != nil {
		log.WithError(err).WithField("tag", tag).Warn("Failed to look up faction for announcement")
		return fmt.Sprintf("[%s]", tag)
	}
	if faction == nil {
		return fmt.Sprintf("[%s]", tag)
	}
	return fmt.Sprintf("%s [%s]", faction.Name, faction.Tag)
}

// Forget drops a faction, e.g. after it was destroyed or changed
func (d *FactionDirectory) Forget(tag string) {
	d.cache.Remove(tag)
}
