package vkg

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirvHeader(words ...uint32) []byte {
	data := make([]byte, 4*(5+len(words)))
	binary.LittleEndian.PutUint32(data, spirvMagic)
	binary.LittleEndian.PutUint32(data[4:], 0x00010000)
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[20+4*i:], w)
	}
	return data
}

func TestSpirvWords(t *testing.T) {
	words, err := spirvWords(spirvHeader(7, 9))
	require.NoError(t, err)
	require.Len(t, words, 7)
	assert.Equal(t, uint32(spirvMagic), words[0])
	assert.Equal(t, []uint32{7, 9}, words[5:])
}

func TestSpirvWordsRejectsGarbage(t *testing.T) {
	_, err := spirvWords(nil)
	assert.Error(t, err)

	_, err = spirvWords(spirvHeader()[:18])
	assert.Error(t, err, "not a whole number of words")

	bad := spirvHeader()
	bad[0] = 0
	_, err = spirvWords(bad)
	assert.Error(t, err, "wrong magic")
}
