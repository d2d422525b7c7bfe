package study

import (
	"github.com/emirpasic/gods/v2/queues/linkedlistqueue"
)

// waitingList is the FIFO queue of students of one label waiting for a group.
type waitingList struct {
	q *linkedlistqueue.Queue[Student]
}

func newWaitingList() *waitingList {
	return &waitingList{q: linkedlistqueue.New[Student]()}
}

func (wl *waitingList) enqueue(s Student) {
	wl.q.Enqueue(s)
}

func (wl *waitingList) dequeue() (Student, bool) {
	return wl.q.Dequeue()
}

func (wl *waitingList) size() int {
	return wl.q.Size()
}

func (wl *waitingList) students() []Student {
	return wl.q.Values()
}

func (wl *waitingList) find(studentID int) (Student, bool) {
	for _, s := range wl.q.Values() {
		if s.ID == studentID {
			return s, true
		}
	}
	return Student{}, false
}

// remove drops a student and keeps the order of the others.
func (wl *waitingList) remove(studentID int) (Student, bool) {
	values := wl.q.Values()
	idx := -1
	for i, s := range values {
		if s.ID == studentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Student{}, false
	}
	wl.q.Clear()
	for i, s := range values {
		if i != idx {
			wl.q.Enqueue(s)
		}
	}
	return values[idx], true
}

// replace swaps a waiting student's record in place.
func (wl *waitingList) replace(s Student) bool {
	values := wl.q.Values()
	found := false
	for i := range values {
		if values[i].ID == s.ID {
			values[i] = s
			found = true
			break
		}
	}
	if !found {
		return false
	}
	wl.q.Clear()
	for _, v := range values {
		wl.q.Enqueue(v)
	}
	return true
}
