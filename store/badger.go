package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/rushteam/movierec/core"
)

// Key 前缀：普通 KV / 有序集合成员
const (
	badgerKVPrefix   = "kv:"
	badgerZSetPrefix = "z:"
)

// BadgerStore 是 BadgerDB 实现的 KeyValueStore，单机部署时持久化查询向量缓存，
// 进程重启后无需重新调用编码服务。
//
// 有序集合按成员展开成独立 key（z:{key}\x00{member}），读取时前缀扫描。
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore 包装已打开的 DB，Close 时一并关闭。
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore 打开目录 dir 下的 BadgerDB；dir 为空时使用内存模式。
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger %q: %w", dir, err)
	}
	return NewBadgerStore(db), nil
}

func (b *BadgerStore) Name() string { return "badger" }

func (b *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	return b.get([]byte(badgerKVPrefix + key))
}

func (b *BadgerStore) get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return core.ErrStoreNotFound
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BadgerStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(newEntry(badgerKVPrefix+key, value, ttl))
	})
}

func (b *BadgerStore) Delete(ctx context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(badgerKVPrefix + key))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

func (b *BadgerStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get([]byte(badgerKVPrefix + k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *BadgerStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for k, v := range kvs {
		if err := wb.SetEntry(newEntry(badgerKVPrefix+k, v, ttl)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func newEntry(key string, value []byte, ttl []int) *badger.Entry {
	e := badger.NewEntry([]byte(key), value)
	if d := ttlDuration(ttl); d > 0 {
		e = e.WithTTL(d)
	}
	return e
}

var _ core.KeyValueStore = (*BadgerStore)(nil)

func zsetKey(key, member string) []byte {
	return []byte(badgerZSetPrefix + key + "\x00" + member)
}

func (b *BadgerStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(score))
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(zsetKey(key, member), buf[:])
	})
}

func (b *BadgerStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	zset := make(map[string]float64)
	err := b.scanPrefix(badgerZSetPrefix+key+"\x00", func(field string, val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("store: corrupt zset score for %s/%s", key, field)
		}
		zset[field] = math.Float64frombits(binary.BigEndian.Uint64(val))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(zset) == 0 {
		return nil, nil
	}
	return rangeByScore(zset, start, stop), nil
}

func (b *BadgerStore) ZScore(ctx context.Context, key string, member string) (float64, error) {
	val, err := b.get(zsetKey(key, member))
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("store: corrupt zset score for %s/%s", key, member)
	}
	return math.Float64frombits(binary.BigEndian.Uint64(val)), nil
}

// scanPrefix 遍历前缀下所有 key，回调拿到去掉前缀后的后缀与值（值仅在回调内有效）
func (b *BadgerStore) scanPrefix(prefix string, fn func(suffix string, val []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			suffix := strings.TrimPrefix(string(item.Key()), prefix)
			if err := item.Value(func(val []byte) error {
				return fn(suffix, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
