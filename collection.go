package injector

import (
	"reflect"
	"slices"
)

// Queue is a collection dependency holding every matching service in
// ranked order, lowest ranking at the front.
type Queue[T any] struct {
	items []T
}

func (q *Queue[T]) AppendElement(v any) {
	q.items = append(q.items, v.(T))
}

func (q *Queue[T]) ElementType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Peek returns the front element without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}

// Dequeue removes and returns the front element.
func (q *Queue[T]) Dequeue() (T, bool) {
	v, ok := q.Peek()
	if ok {
		q.items = q.items[1:]
	}
	return v, ok
}

func (q *Queue[T]) Items() []T {
	return slices.Clone(q.items)
}

// Stack is a collection dependency whose top is the highest ranking
// service.
type Stack[T any] struct {
	items []T
}

func (s *Stack[T]) AppendElement(v any) {
	s.items = append(s.items, v.(T))
}

func (s *Stack[T]) ElementType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (s *Stack[T]) Len() int {
	return len(s.items)
}

func (s *Stack[T]) Peek() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Stack[T]) Pop() (T, bool) {
	v, ok := s.Peek()
	if ok {
		s.items = s.items[:len(s.items)-1]
	}
	return v, ok
}

// Items returns the elements from top to bottom.
func (s *Stack[T]) Items() []T {
	out := slices.Clone(s.items)
	slices.Reverse(out)
	return out
}
