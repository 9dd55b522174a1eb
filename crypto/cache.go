package crypto

import (
	"container/list"
	"crypto/sha256"
	"slices"
	"strings"
	"sync"

	"github.com/kengeo/libra"
	"github.com/kengeo/libra/modules"
)

type cache struct {
	impl        modules.CryptoBase
	mut         sync.Mutex
	capacity    int
	entries     map[string]*list.Element
	accessOrder list.List
}

// NewCache returns a new Crypto instance that caches the results of the operations of the given CryptoBase
// implementation.
func NewCache(impl modules.CryptoBase, capacity int) modules.Crypto {
	return New(&cache{
		impl:     impl,
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
	})
}

// InitModule initializes the wrapped CryptoBase if it is a module.
func (cache *cache) InitModule(mods *modules.Core) {
	if mod, ok := cache.impl.(modules.Module); ok {
		mod.InitModule(mods)
	}
}

func (cache *cache) insert(key string) {
	cache.mut.Lock()
	defer cache.mut.Unlock()
	elem, ok := cache.entries[key]
	if ok {
		cache.accessOrder.MoveToFront(elem)
		return
	}
	cache.evict()
	elem = cache.accessOrder.PushFront(key)
	cache.entries[key] = elem
}

func (cache *cache) check(key string) bool {
	cache.mut.Lock()
	defer cache.mut.Unlock()
	elem, ok := cache.entries[key]
	if !ok {
		return false
	}
	cache.accessOrder.MoveToFront(elem)
	return true
}

func (cache *cache) evict() {
	if len(cache.entries) < cache.capacity {
		return
	}
	key := cache.accessOrder.Remove(cache.accessOrder.Back()).(string)
	delete(cache.entries, key)
}

// Sign signs a message and adds it to the cache for use during verification.
func (cache *cache) Sign(message []byte) (sig libra.QuorumSignature, err error) {
	sig, err = cache.impl.Sign(message)
	if err != nil {
		return nil, err
	}
	var key strings.Builder
	hash := sha256.Sum256(message)
	_, _ = key.Write(hash[:])
	_, _ = key.Write(sig.ToBytes())
	cache.insert(key.String())
	return sig, nil
}

// Verify verifies the given quorum signature against the message.
func (cache *cache) Verify(signature libra.QuorumSignature, message []byte) error {
	var key strings.Builder
	hash := sha256.Sum256(message)
	_, _ = key.Write(hash[:])
	_, _ = key.Write(signature.ToBytes())

	if cache.check(key.String()) {
		return nil
	}

	if err := cache.impl.Verify(signature, message); err != nil {
		return err
	}
	cache.insert(key.String())
	return nil
}

// BatchVerify verifies the given quorum signature against the batch of messages.
func (cache *cache) BatchVerify(signature libra.QuorumSignature, batch map[libra.ID][]byte) error {
	// hash the messages in sorted ID order to get a deterministic key
	ids := make([]libra.ID, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	hasher := sha256.New()
	for _, id := range ids {
		_, _ = hasher.Write(batch[id])
	}

	var key strings.Builder
	_, _ = key.Write(hasher.Sum(nil))
	_, _ = key.Write(signature.ToBytes())

	if cache.check(key.String()) {
		return nil
	}

	if err := cache.impl.BatchVerify(signature, batch); err != nil {
		return err
	}
	cache.insert(key.String())
	return nil
}

// Combine combines multiple signatures together into a single signature.
func (cache *cache) Combine(signatures ...libra.QuorumSignature) (libra.QuorumSignature, error) {
	// we don't cache the result of this operation, because it is not guaranteed to be valid.
	return cache.impl.Combine(signatures...)
}
