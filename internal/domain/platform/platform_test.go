package platform

import (
	"testing"

	"github.com/cassiomorais/marketsync/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Platform
	}{
		{"ebay", EBay},
		{"EBay", EBay},
		{" facebook ", Facebook},
		{"MERCARI", Mercari},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("etsy")
	assert.ErrorIs(t, err, errors.ErrUnknownPlatform)
}

func TestAll_Valid(t *testing.T) {
	assert.Len(t, All(), 3)
	for _, p := range All() {
		assert.True(t, p.Valid())
		assert.NotEmpty(t, p.DisplayName())
	}
	assert.False(t, Platform("etsy").Valid())
}

func TestFromCallbackURL(t *testing.T) {
	p, ok := FromCallbackURL("marketsync://oauth/mercari/callback?code=abc")
	assert.True(t, ok)
	assert.Equal(t, Mercari, p)

	_, ok = FromCallbackURL("marketsync://oauth/etsy/callback?code=abc")
	assert.False(t, ok)
}
