package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("%w: upstream said no", ErrDrawerClosed)
	assert.True(t, errors.Is(wrapped, ErrDrawerClosed))

	again := BusinessRule("drawer_closed", "different text")
	assert.True(t, errors.Is(again, ErrDrawerClosed))
	assert.False(t, errors.Is(wrapped, ErrInFlight))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindBusinessRule, KindOf(fmt.Errorf("ctx: %w", ErrDrawerClosed)))
	assert.Equal(t, KindConflict, KindOf(ErrInFlight))
	assert.Equal(t, KindTransport, KindOf(Transport("get products", errors.New("dial tcp: refused"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "internal", CodeOf(errors.New("boom")))
	assert.Equal(t, "drawer_closed", CodeOf(ErrDrawerClosed))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Transport("submit sale", errors.New("timeout"))
	assert.Equal(t, "submit sale: timeout", err.Error())
	assert.Equal(t, "transport", err.Kind.String())
}
