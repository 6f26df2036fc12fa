package badger

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-l2cap/internal/core/storage/engine"
)

// Iterator BadgerDB 前缀迭代器
type Iterator struct {
	txn     *badger.Txn
	iter    *badger.Iterator
	prefix  []byte
	started bool
	closed  bool
	err     error
}

var _ engine.Iterator = (*Iterator)(nil)

// Next 移动到下一项
func (it *Iterator) Next() bool {
	if it.closed {
		return false
	}
	if !it.started {
		it.started = true
		it.iter.Seek(it.prefix)
	} else {
		it.iter.Next()
	}
	return it.iter.ValidForPrefix(it.prefix)
}

// Key 返回当前键
func (it *Iterator) Key() []byte {
	if it.closed || !it.iter.Valid() {
		return nil
	}
	return it.iter.Item().KeyCopy(nil)
}

// Value 返回当前值
func (it *Iterator) Value() []byte {
	if it.closed || !it.iter.Valid() {
		return nil
	}
	v, err := it.iter.Item().ValueCopy(nil)
	if err != nil {
		it.err = err
		return nil
	}
	return v
}

// Error 返回遍历错误
func (it *Iterator) Error() error {
	return it.err
}

// Close 释放迭代器
func (it *Iterator) Close() {
	if it.closed {
		return
	}
	it.closed = true
	it.iter.Close()
	it.txn.Discard()
}
