package market

// Item is the catalog's view of one item type.
type Item struct {
	ID       uint32
	Name     string
	Category string
}

// ItemCatalog is the host game's item lookup. The marketplace never
// inspects items beyond identity, name and category.
type ItemCatalog interface {
	Resolve(itemType uint32) (Item, bool)
}

// RateLimiter may veto entity creation before it reaches the registry.
// A nil limiter allows everything.
type RateLimiter interface {
	AllowCreate(player uint64) bool
}
