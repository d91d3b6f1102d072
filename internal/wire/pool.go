/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package wire

import "bytes"

// BufferPool recycles the bytes.Buffer instances used to hold rendered
// outbound lines before they are handed to a session's write queue.
// Grounded on btnmasher-dircd/shared/pool and shared/itempool: a
// buffered channel acting as a bounded free list, falling back to a
// fresh allocation when empty.
type BufferPool struct {
	free chan *bytes.Buffer
}

// NewBufferPool constructs a pool holding at most max idle buffers.
func NewBufferPool(max int) *BufferPool {
	return &BufferPool{free: make(chan *bytes.Buffer, max)}
}

// Get returns an empty buffer, recycled from the pool when available.
func (p *BufferPool) Get() *bytes.Buffer {
	select {
	case buf := <-p.free:
		return buf
	default:
		return &bytes.Buffer{}
	}
}

// Put resets and returns buf to the pool. If the pool is full the
// buffer is simply dropped for the garbage collector.
func (p *BufferPool) Put(buf *bytes.Buffer) {
	buf.Reset()
	select {
	case p.free <- buf:
	default:
	}
}
