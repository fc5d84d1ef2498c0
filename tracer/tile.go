package tracer

import (
	"math/rand"
	"sync"
)

// A rectangular region of the frame processed as a single unit of work.
type Tile struct {
	X, Y uint32
	W, H uint32
}

// Split a frame into a row-major grid of tiles. Tiles on the right and
// bottom edges are clipped to the frame bounds.
func SplitFrame(frameW, frameH, tileSize uint32) []Tile {
	if frameW == 0 || frameH == 0 || tileSize == 0 {
		return nil
	}

	tiles := make([]Tile, 0, ((frameW+tileSize-1)/tileSize)*((frameH+tileSize-1)/tileSize))
	for y := uint32(0); y < frameH; y += tileSize {
		for x := uint32(0); x < frameW; x += tileSize {
			tiles = append(tiles, Tile{
				X: x,
				Y: y,
				W: minu32(tileSize, frameW-x),
				H: minu32(tileSize, frameH-y),
			})
		}
	}
	return tiles
}

// A mutex-protected FIFO of tiles shared by the render workers.
type WorkQueue struct {
	mutex sync.Mutex
	tiles []Tile
	head  int
}

// Append a shuffled copy of tiles to the queue. Shuffling spreads cheap
// and expensive regions of the frame evenly across workers.
func (q *WorkQueue) Fill(tiles []Tile, rng *rand.Rand) {
	shuffled := make([]Tile, len(tiles))
	copy(shuffled, tiles)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	q.mutex.Lock()
	q.compact()
	q.tiles = append(q.tiles, shuffled...)
	q.mutex.Unlock()
}

// Append a tile to the queue.
func (q *WorkQueue) Push(tile Tile) {
	q.mutex.Lock()
	q.tiles = append(q.tiles, tile)
	q.mutex.Unlock()
}

// Dequeue the next tile without blocking. The second return value is false
// if the queue is empty.
func (q *WorkQueue) TryPop() (Tile, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.head >= len(q.tiles) {
		return Tile{}, false
	}
	tile := q.tiles[q.head]
	q.head++
	return tile, true
}

// Remove all pending tiles.
func (q *WorkQueue) Clear() {
	q.mutex.Lock()
	q.tiles = q.tiles[:0]
	q.head = 0
	q.mutex.Unlock()
}

// Get the number of pending tiles.
func (q *WorkQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.tiles) - q.head
}

// Drop already consumed tiles. Must be called with the mutex held.
func (q *WorkQueue) compact() {
	if q.head == 0 {
		return
	}
	n := copy(q.tiles, q.tiles[q.head:])
	q.tiles = q.tiles[:n]
	q.head = 0
}

func minu32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
