package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptchaAnswers(t *testing.T) {
	s := NewCaptchaService()
	for i := 0; i < 100; i++ {
		q, answer := s.GenerateMathProblem()
		var a, b int
		var op string
		_, err := fmt.Sscanf(q, "%d %s %d", &a, &op, &b)
		require.NoError(t, err)
		switch op {
		case "+":
			assert.Equal(t, a+b, answer)
		case "-":
			assert.Equal(t, a-b, answer)
			assert.GreaterOrEqual(t, answer, 0)
		default:
			t.Fatalf("unexpected operator in %q", q)
		}
	}
}
