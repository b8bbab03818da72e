package session

import "github.com/pion/webrtc/v4"

// candidateQueue хранит удалённые кандидаты, пришедшие раньше remote description.
// При переполнении новые кандидаты отбрасываются.
type candidateQueue struct {
	items []webrtc.ICECandidateInit
	limit int
}

func newCandidateQueue(limit int) *candidateQueue {
	return &candidateQueue{limit: limit}
}

// push возвращает false, если очередь заполнена
func (q *candidateQueue) push(c webrtc.ICECandidateInit) bool {
	if len(q.items) >= q.limit {
		return false
	}
	q.items = append(q.items, c)
	return true
}

// drain отдаёт кандидаты в порядке поступления и очищает очередь
func (q *candidateQueue) drain() []webrtc.ICECandidateInit {
	items := q.items
	q.items = nil
	return items
}

func (q *candidateQueue) reset() {
	q.items = nil
}

func (q *candidateQueue) len() int {
	return len(q.items)
}
