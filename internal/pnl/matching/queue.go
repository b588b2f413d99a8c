package matching

import (
	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
)

// queuedLot is an open lot plus the part of its entry fee that no match has
// taken yet.
type queuedLot struct {
	domain.Lot
	fees decimal.Decimal
}

// lotQueue is a FIFO of open lots for a single symbol. All lots in the
// queue share one direction. Consumed lots are skipped by advancing head;
// the backing slice is compacted once more than half of it is dead.
type lotQueue struct {
	lots []queuedLot
	head int
}

func (q *lotQueue) empty() bool {
	return q.head >= len(q.lots)
}

func (q *lotQueue) len() int {
	return len(q.lots) - q.head
}

// direction is only meaningful when the queue is not empty.
func (q *lotQueue) direction() domain.Direction {
	return q.lots[q.head].Direction
}

func (q *lotQueue) push(l domain.Lot, fees decimal.Decimal) {
	q.lots = append(q.lots, queuedLot{Lot: l, fees: fees})
}

func (q *lotQueue) front() *queuedLot {
	return &q.lots[q.head]
}

func (q *lotQueue) pop() {
	q.lots[q.head] = queuedLot{}
	q.head++
	if q.head == len(q.lots) {
		q.lots = q.lots[:0]
		q.head = 0
		return
	}
	if q.head > 32 && q.head*2 > len(q.lots) {
		n := copy(q.lots, q.lots[q.head:])
		q.lots = q.lots[:n]
		q.head = 0
	}
}

// snapshot returns a copy of the open lots, oldest first.
func (q *lotQueue) snapshot() []domain.Lot {
	if q.empty() {
		return nil
	}
	out := make([]domain.Lot, 0, q.len())
	for _, l := range q.lots[q.head:] {
		out = append(out, l.Lot)
	}
	return out
}
