// Package todo is the expansion scheduler: one FIFO queue per priority,
// with save/restore aligned to the completion tree's levels.
package todo

import (
	"fmt"

	"github.com/nodeadmin/tableau/ctree"
	"github.com/nodeadmin/tableau/dag"
	"github.com/nodeadmin/tableau/dep"
)

// Class is the kind of rule an entry triggers.
type Class uint8

const (
	Id Class = iota
	And
	Or
	Exists
	Forall
	LE
	GE
	NumClasses
)

var classLetters = [NumClasses]byte{'I', 'A', 'O', 'E', 'F', 'L', 'G'}

func (c Class) String() string {
	if c < NumClasses {
		return string(classLetters[c])
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Fault is a misuse of the list, such as restoring a level that was
// never saved. It is raised by panic.
type Fault struct {
	Op  string
	Msg string
}

func (f Fault) Error() string { return fmt.Sprintf("todo %s: %s", f.Op, f.Msg) }

// DefaultPriorities lists the priority of each class in IAOEFLG order.
const DefaultPriorities = "1263005"

// Priorities maps a class to its queue; lower is served first.
type Priorities [NumClasses]int

// ParsePriorities reads seven digits 0-6, one per class in IAOEFLG order.
func ParsePriorities(s string) (Priorities, error) {
	var p Priorities
	if len(s) != int(NumClasses) {
		return p, fmt.Errorf("priority string %q: want %d digits, got %d", s, NumClasses, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '6' {
			return p, fmt.Errorf("priority string %q: %c at %d (class %s) is not in 0-6", s, c, i, Class(i))
		}
		p[i] = int(c - '0')
	}
	return p, nil
}

func (p Priorities) String() string {
	b := make([]byte, NumClasses)
	for i, v := range p {
		b[i] = byte('0' + v)
	}
	return string(b)
}

// ClassOf returns the class of the rule bp triggers, or false for
// concepts no rule works on.
func ClassOf(d *dag.DAG, bp dag.BP) (Class, bool) {
	switch d.Kind(bp) {
	case dag.KindName, dag.KindNotName:
		return Id, true
	case dag.KindAnd:
		return And, true
	case dag.KindOr:
		return Or, true
	case dag.KindExists:
		return Exists, true
	case dag.KindForall:
		return Forall, true
	case dag.KindAtMost:
		return LE, true
	case dag.KindAtLeast:
		return GE, true
	case dag.KindTop, dag.KindBottom,
		dag.KindDataType, dag.KindNotDataType, dag.KindDataValue, dag.KindNotDataValue:
		return 0, false
	}
	return 0, false
}

// Entry is a pending rule application.
type Entry struct {
	Node ctree.NodeID
	BP   dag.BP
	Dep  dep.Set
}

type queue struct {
	entries []Entry
	sp      int
}

type bounds struct {
	sp, ep int
}

// List is the scheduler. It is not safe for concurrent use.
type List struct {
	prio   Priorities
	queues [NumClasses]queue
	states [][NumClasses]bounds
	level  int
}

// New returns an empty list using the given priorities.
func New(p Priorities) *List {
	return &List{prio: p}
}

// Push queues e under class c.
func (l *List) Push(c Class, e Entry) {
	q := &l.queues[l.prio[c]]
	q.entries = append(q.entries, e)
}

// Pop returns the oldest entry of the most urgent non-empty queue.
func (l *List) Pop() (Entry, bool) {
	for i := range l.queues {
		q := &l.queues[i]
		if q.sp == len(q.entries) {
			continue
		}
		e := q.entries[q.sp]
		q.sp++
		if q.sp == len(q.entries) && len(l.states) == 0 {
			q.entries = q.entries[:0]
			q.sp = 0
		}
		return e, true
	}
	return Entry{}, false
}

// Len returns the number of pending entries.
func (l *List) Len() int {
	n := 0
	for i := range l.queues {
		n += len(l.queues[i].entries) - l.queues[i].sp
	}
	return n
}

// Level returns the current save level.
func (l *List) Level() int { return l.level }

// Save records the queue bounds and opens the next level.
func (l *List) Save() {
	var b [NumClasses]bounds
	for i := range l.queues {
		b[i] = bounds{sp: l.queues[i].sp, ep: len(l.queues[i].entries)}
	}
	l.states = append(l.states, b)
	l.level++
}

// Restore returns the queues to their state when Save was called at
// level: entries added since are dropped and entries popped since are
// pending again.
func (l *List) Restore(level int) {
	if level < 0 || level > l.level {
		panic(Fault{Op: "restore", Msg: fmt.Sprintf("level %d outside [0,%d]", level, l.level)})
	}
	if level == l.level {
		return
	}
	b := l.states[level]
	l.states = l.states[:level]
	l.level = level
	for i := range l.queues {
		q := &l.queues[i]
		clear(q.entries[b[i].ep:])
		q.entries = q.entries[:b[i].ep]
		q.sp = b[i].sp
	}
}

// Clear drops every entry and saved state.
func (l *List) Clear() {
	for i := range l.queues {
		l.queues[i] = queue{}
	}
	l.states = nil
	l.level = 0
}
