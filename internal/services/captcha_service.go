package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// CaptchaService produces small arithmetic questions for the sign-up form.
type CaptchaService struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCaptchaService() *CaptchaService {
	return &CaptchaService{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateMathProblem returns a question such as "3 + 5" and its answer. The answer
// is never negative.
func (s *CaptchaService) GenerateMathProblem() (string, int) {
	s.mu.Lock()
	a := s.rnd.Intn(10)
	b := s.rnd.Intn(10)
	op := s.rnd.Intn(2)
	s.mu.Unlock()

	if op == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}
