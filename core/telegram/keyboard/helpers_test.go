package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsNPerRow(t *testing.T) {
	btns := []InlineBtn{
		{Text: "1h", Unique: "ta", Data: "BTCUSDT|1h"},
		{Text: "4h", Unique: "ta", Data: "BTCUSDT|4h"},
		{Text: "1d", Unique: "ta", Data: "BTCUSDT|1d"},
	}
	m := InlineButtonsNPerRow(btns, 2)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Len(t, m.InlineKeyboard[0], 2)
	assert.Len(t, m.InlineKeyboard[1], 1)
	assert.Equal(t, "ta", m.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "BTCUSDT|4h", m.InlineKeyboard[0][1].Data)
}

func TestInlineButtonsRowsSkipsEmpty(t *testing.T) {
	m := InlineButtonsRows(nil, []InlineBtn{{Text: "x", Unique: "k"}})
	assert.Len(t, m.InlineKeyboard, 1)
}
