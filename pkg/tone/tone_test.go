package tone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaletteSetAndAdd(t *testing.T) {
	p := NewPalette(map[string]string{
		"neutral": "Be clear and balanced.",
		"vip":     "Treat the guest as a returning VIP.",
	}, []string{"neutral"})

	assert.Equal(t, []string{"neutral"}, p.Active())
	assert.True(t, p.IsActive("neutral"))

	p.Add("vip")
	assert.Equal(t, []string{"neutral", "vip"}, p.Active())

	// Add is idempotent and ignores empty ids.
	p.Add("vip")
	p.Add("")
	assert.Equal(t, []string{"neutral", "vip"}, p.Active())

	p.Set([]string{"vip"})
	assert.Equal(t, []string{"vip"}, p.Active())
	assert.False(t, p.IsActive("neutral"))
}

func TestPaletteInstruction(t *testing.T) {
	p := NewPalette(map[string]string{
		"empathetic": "Be calm and warm.",
	}, []string{"empathetic", "unknown"})

	// Undefined tones fall back to their id.
	assert.Equal(t, "Be calm and warm. unknown", p.Instruction())
}

func TestActiveReturnsCopy(t *testing.T) {
	p := NewPalette(nil, []string{"neutral"})
	active := p.Active()
	active[0] = "mutated"
	assert.Equal(t, []string{"neutral"}, p.Active())
}
