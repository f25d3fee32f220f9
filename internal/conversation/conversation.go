// Package conversation models per-conversation context threaded explicitly
// through the query pipeline, plus a session store for the HTTP edge.
package conversation

import (
	"strings"
	"sync"
	"time"
)

// Message is a single turn in a conversation.
type Message struct {
	Role      string // "user" or "assistant"
	Content   string
	Timestamp time.Time
}

// Context is the explicit conversation state passed into the planner and
// synthesizer. It is safe for concurrent use: the same session may be hit by
// parallel requests, so every mutation happens under the context's own lock
// and reads hand out copies.
type Context struct {
	mu          sync.Mutex
	messages    []Message
	createdAt   time.Time
	updatedAt   time.Time
	maxMessages int
}

// NewContext creates an empty conversation context keeping at most
// maxMessages turns.
func NewContext(maxMessages int) *Context {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	now := time.Now()
	return &Context{createdAt: now, updatedAt: now, maxMessages: maxMessages}
}

// AddUser appends a user message.
func (c *Context) AddUser(content string) { c.add("user", content) }

// AddAssistant appends an assistant message.
func (c *Context) AddAssistant(content string) { c.add("assistant", content) }

func (c *Context) add(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, Message{Role: role, Content: content, Timestamp: time.Now()})
	c.updatedAt = time.Now()
	if len(c.messages) > c.maxMessages {
		c.messages = c.messages[len(c.messages)-c.maxMessages:]
	}
}

// Len returns the number of retained messages.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Recent returns a copy of the last n messages.
func (c *Context) Recent(n int) []Message {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	start := len(c.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(c.messages)-start)
	copy(out, c.messages[start:])
	return out
}

// LastActive returns the time of the most recent mutation.
func (c *Context) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// FormatForPrompt renders the last n turns for inclusion in an LLM prompt.
// Returns empty string when there is no history.
func (c *Context) FormatForPrompt(n int) string {
	if c == nil {
		return ""
	}
	messages := c.Recent(n)
	if len(messages) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case "user":
			sb.WriteString("Soru: " + msg.Content + "\n")
		case "assistant":
			sb.WriteString("Cevap: " + msg.Content + "\n")
		}
	}
	return sb.String()
}

// Store maps session ids to conversation contexts at the HTTP edge.
// Expired sessions are removed in the background.
type Store struct {
	mu          sync.Mutex
	contexts    map[string]*Context
	maxMessages int
	ttl         time.Duration
}

// NewStore creates a session store.
func NewStore(maxMessages int, ttl time.Duration) *Store {
	s := &Store{
		contexts:    make(map[string]*Context),
		maxMessages: maxMessages,
		ttl:         ttl,
	}
	go s.cleanupLoop()
	return s
}

// DefaultStore creates a store keeping 20 messages per session for one hour.
func DefaultStore() *Store {
	return NewStore(20, time.Hour)
}

// Get returns the conversation context for a session, creating it on first use.
func (s *Store) Get(sessionID string) *Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.contexts[sessionID]
	if !ok {
		ctx = NewContext(s.maxMessages)
		s.contexts[sessionID] = ctx
	}
	return ctx
}

// Clear removes a session.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, sessionID)
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.cleanup()
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, ctx := range s.contexts {
		if now.Sub(ctx.LastActive()) > s.ttl {
			delete(s.contexts, id)
		}
	}
}
