package formats

import "io"

// EventKind identifies one event of the canonical stream.
type EventKind int

// The fixed event vocabulary. Every syntax reduces to the same shape:
//
//	Init Start(table) [Start(tr) (Start(td) Text End(td))* End(tr)]* End(table) Fin
const (
	Init EventKind = iota
	Start
	End
	Text
	Fin
)

func (k EventKind) String() string {
	switch k {
	case Init:
		return "init"
	case Start:
		return "start"
	case End:
		return "end"
	case Text:
		return "text"
	case Fin:
		return "fin"
	}
	return "unknown"
}

// Event is one element of the canonical stream. Start events on a cell
// carry the field name in a class attribute.
type Event struct {
	Kind  EventKind
	Tag   string
	Attrs [][2]string
	Text  string
}

// Canonical tag names used by the event stream regardless of the
// underlying syntax.
const (
	tableTag = "table"
	rowTag   = "tr"
	cellTag  = "td"
)

// EventStream adapts an Engine to pull-style event consumption. The
// underlying reader only advances when the events of the previous
// record are exhausted, so a caller that stops requesting events stops
// further input.
type EventStream struct {
	e *Engine

	pending []Event
	started bool
	done    bool
}

// Events wraps a started Engine in pull form.
func Events(e *Engine) *EventStream {
	return &EventStream{e: e}
}

// Next returns the next event. After the Fin event every further call
// returns io.EOF.
func (s *EventStream) Next() (Event, error) {
	if len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		return ev, nil
	}
	if s.done {
		return Event{}, io.EOF
	}
	if !s.started {
		s.started = true
		s.pending = []Event{{Kind: Start, Tag: tableTag}}
		return Event{Kind: Init}, nil
	}

	values, err := s.e.ReadArray()
	if err == io.EOF {
		s.done = true
		s.pending = []Event{{Kind: Fin}}
		return Event{Kind: End, Tag: tableTag}, nil
	}
	if err != nil {
		return Event{}, err
	}

	s.pending = append(s.pending[:0], Event{Kind: Start, Tag: rowTag})
	for i := 1; i < len(values); i++ {
		f, ferr := s.e.Schema().At(i)
		if ferr != nil {
			continue
		}
		s.pending = append(s.pending,
			Event{Kind: Start, Tag: cellTag, Attrs: [][2]string{{"class", f.Name}}},
			Event{Kind: Text, Text: values[i]},
			Event{Kind: End, Tag: cellTag},
		)
	}
	s.pending = append(s.pending, Event{Kind: End, Tag: rowTag})

	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, nil
}

// Walk drives the engine to completion in push form, calling fn for
// every event. A non-nil error from fn stops the walk and is returned.
func Walk(e *Engine, fn func(Event) error) error {
	s := Events(e)
	for {
		ev, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
