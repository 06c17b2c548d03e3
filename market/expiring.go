package market

import (
	"github.com/google/btree"
)

type entityKind int

const (
	kindOffer entityKind = iota
	kindOrder
)

type entityRef struct {
	kind entityKind
	id   uint64
}

// expiringEntities indexes offers and orders by expiration timestamp so
// the periodic sweep visits only what is due, not every entity.
type expiringEntities struct {
	entities *btree.BTree
}

type entitiesAtTS struct {
	ts   int64
	refs []entityRef
}

func (a *entitiesAtTS) Less(b btree.Item) bool {
	return a.ts < b.(*entitiesAtTS).ts
}

func newExpiringEntities() *expiringEntities {
	return &expiringEntities{
		entities: btree.New(2),
	}
}

func (a *expiringEntities) Insert(kind entityKind, id uint64, ts int64) {
	if ts <= 0 {
		return
	}
	item := &entitiesAtTS{ts: ts}
	if existing := a.entities.Get(item); existing != nil {
		at := existing.(*entitiesAtTS)
		at.refs = append(at.refs, entityRef{kind: kind, id: id})
		return
	}
	item.refs = []entityRef{{kind: kind, id: id}}
	a.entities.ReplaceOrInsert(item)
}

func (a *expiringEntities) Remove(kind entityKind, id uint64, ts int64) bool {
	item := a.entities.Get(&entitiesAtTS{ts: ts})
	if item == nil {
		return false
	}
	at := item.(*entitiesAtTS)
	for i, ref := range at.refs {
		if ref.kind == kind && ref.id == id {
			at.refs = append(at.refs[:i], at.refs[i+1:]...)
			if len(at.refs) == 0 {
				a.entities.Delete(at)
			}
			return true
		}
	}
	return false
}

// Expired pops every reference whose timestamp has passed.
func (a *expiringEntities) Expired(now int64) []entityRef {
	var due []*entitiesAtTS
	a.entities.Ascend(func(item btree.Item) bool {
		at := item.(*entitiesAtTS)
		if at.ts > now {
			return false
		}
		due = append(due, at)
		return true
	})
	var refs []entityRef
	for _, at := range due {
		refs = append(refs, at.refs...)
		a.entities.Delete(at)
	}
	return refs
}

func (a *expiringEntities) Len() int {
	n := 0
	a.entities.Ascend(func(item btree.Item) bool {
		n += len(item.(*entitiesAtTS).refs)
		return true
	})
	return n
}
