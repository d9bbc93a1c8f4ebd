// Package events turns raw server log lines into typed events and fans them out to
// registered listeners.
package events

import (
	"sync"
)

func NewRouter() *Router {
	return &Router{
		parser:    newParser(),
		readers:   make(map[EventType][]chan<- Event),
		readersMu: &sync.RWMutex{},
	}
}

// Router handles receiving raw log line events from a console.Source, parsing them into
// a Event and sending the parsed event to any registered handlers for the parsed event.
type Router struct {
	readersAny []chan<- Event
	readers    map[EventType][]chan<- Event
	readersMu  *sync.RWMutex
	parser     *parser
}

// ListenFor registers a channel to start receiving events for the specified event.
func (l *Router) ListenFor(logType EventType, handler chan<- Event) {
	l.readersMu.Lock()
	defer l.readersMu.Unlock()

	// Any case is handled more generally
	if logType == Any {
		l.readersAny = append(l.readersAny, handler)

		return
	}

	l.readers[logType] = append(l.readers[logType], handler)
}

// Send is responsible for parsing and sending the result to any matching registered channels.
// Handlers must be drained, a full channel blocks the log source.
func (l *Router) Send(line string) {
	logEvent, errParse := l.parser.parse(line)
	if errParse != nil {
		logEvent = Event{Type: Any, Raw: line, Data: AnyEvent{Raw: line}}
	}

	l.readersMu.RLock()
	defer l.readersMu.RUnlock()

	for _, handler := range l.readers[logEvent.Type] {
		handler <- logEvent
	}

	for _, handler := range l.readersAny {
		handler <- logEvent
	}
}
