package auth

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const codeTTL = 5 * time.Minute

type codeEntry struct {
	code    string
	expires time.Time
}

// CodeStore keeps pending email verification codes in memory. A code is
// single use: it is deleted on successful verification and ignored after its
// TTL elapses.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]codeEntry
	now   func() time.Time
}

func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]codeEntry), now: time.Now}
}

// Generate mints a fresh 6-digit code for email, replacing any prior one.
func (s *CodeStore) Generate(email string) string {
	code := fmt.Sprintf("%06d", rand.IntN(1000000))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = codeEntry{code: code, expires: s.now().Add(codeTTL)}
	return code
}

// Verify checks the code for email and consumes it on success.
func (s *CodeStore) Verify(email, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.codes[email]
	if !ok {
		return false
	}
	if s.now().After(entry.expires) {
		delete(s.codes, email)
		return false
	}
	if entry.code != code {
		return false
	}

	delete(s.codes, email)
	return true
}
