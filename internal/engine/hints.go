package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/inkrush/inkrush-backend/internal/words"
)

// hintInterval/hintLimit bound the supplemented word-hint reveal
// feature: every ~15s during drawing, reveal one more letter, capped
// at two reveals per round so the word never gives itself away.
const (
	hintInterval = 15 * time.Second
	hintLimit    = 2
)

type hintTracker struct {
	mu    sync.Mutex
	rooms map[string]*roomHints
}

type roomHints struct {
	timer *time.Timer
}

func newHintTracker() *hintTracker {
	return &hintTracker{rooms: make(map[string]*roomHints)}
}

// start arms the reveal ticker for one drawing round. onReveal is
// called with the progressively-unmasked word on each tick.
func (h *hintTracker) start(roomCode string, round int, word string, onReveal func(masked string)) {
	h.stop(roomCode)

	revealed := map[int]bool{}
	indices := letterIndices(word)
	rand.Shuffle(len(indices), func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })

	h.mu.Lock()
	defer h.mu.Unlock()
	rh := &roomHints{}
	h.rooms[roomCode] = rh

	reveals := 0
	var tick func()
	tick = func() {
		if reveals >= hintLimit || reveals >= len(indices) {
			return
		}
		revealed[indices[reveals]] = true
		reveals++
		onReveal(words.Mask(word, revealed))

		h.mu.Lock()
		if h.rooms[roomCode] == rh {
			rh.timer = time.AfterFunc(hintInterval, tick)
		}
		h.mu.Unlock()
	}
	rh.timer = time.AfterFunc(hintInterval, tick)
}

func (h *hintTracker) stop(roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rh, ok := h.rooms[roomCode]; ok {
		if rh.timer != nil {
			rh.timer.Stop()
		}
		delete(h.rooms, roomCode)
	}
}

// letterIndices returns rune indices (matching words.Mask's indexing,
// not byte offsets) for every non-space character in word.
func letterIndices(word string) []int {
	var out []int
	for i, r := range []rune(word) {
		if r != ' ' {
			out = append(out, i)
		}
	}
	return out
}
