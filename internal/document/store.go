package document

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// DefaultCharBudget bounds how much extracted text is injected into a single
// model call when no budget is configured.
const DefaultCharBudget = 12000

// Document is the extracted content of the most recent upload.
type Document struct {
	ID         string
	Filename   string
	Pages      int
	Bytes      int
	Text       string
	UploadedAt time.Time
}

// Store holds the single global document slot. An upload replaces the slot
// wholesale and is immediately visible to every session; last writer wins.
// Per-session documents are a known limitation, not supported.
type Store struct {
	mu     sync.RWMutex
	doc    *Document
	budget int
}

func NewStore(charBudget int) *Store {
	if charBudget <= 0 {
		charBudget = DefaultCharBudget
	}
	return &Store{budget: charBudget}
}

// Put replaces the current document.
func (s *Store) Put(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = &doc
}

// Snapshot returns a copy of the current document and whether one is loaded.
func (s *Store) Snapshot() (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return Document{}, false
	}
	return *s.doc, true
}

// Loaded reports whether a document is available.
func (s *Store) Loaded() bool {
	_, ok := s.Snapshot()
	return ok
}

// BoundedText returns the extracted text truncated to the configured char
// budget, plus whether a document is loaded at all.
func (s *Store) BoundedText() (string, bool) {
	doc, ok := s.Snapshot()
	if !ok {
		return "", false
	}
	if len(doc.Text) > s.budget {
		return cutAtRuneBoundary(doc.Text, s.budget) + "\n[... document truncated ...]", true
	}
	return doc.Text, true
}

// Augment wraps the user message with a delimited block carrying a bounded
// prefix of the extracted document text. Without a loaded document the
// message passes through unchanged. The augmented form is only what reaches
// the model for this call; stored history keeps the original message.
func (s *Store) Augment(userMessage string) string {
	doc, ok := s.Snapshot()
	if !ok {
		return userMessage
	}

	text := doc.Text
	truncated := false
	if len(text) > s.budget {
		text = cutAtRuneBoundary(text, s.budget)
		truncated = true
	}

	var b strings.Builder
	b.WriteString("The user has uploaded a document. Use the reference content below when it is relevant to the question.\n")
	fmt.Fprintf(&b, "<document filename=%q pages=%d>\n", doc.Filename, doc.Pages)
	b.WriteString(text)
	if truncated {
		b.WriteString("\n[... document truncated ...]")
	}
	b.WriteString("\n</document>\n\n")
	b.WriteString(userMessage)
	return b.String()
}

// cutAtRuneBoundary truncates s to at most n bytes without splitting a
// multi-byte UTF-8 rune at the cut.
func cutAtRuneBoundary(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
