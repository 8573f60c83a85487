// Package decode flattens event logs into 32-byte words and infers tournament
// tiers from them without a known ABI.
package decode

import (
	"encoding/hex"
	"strings"

	"github.com/goodnatureofminers/tierwatch-backend/internal/model"
)

const wordHexLen = model.WordSize * 2

// Words returns the topics of l followed by its data split into whole words.
// A trailing partial word in the data is dropped.
func Words(l model.LogRecord) []model.Word {
	data := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(l.Data)), "0x")
	words := make([]model.Word, 0, len(l.Topics)+len(data)/wordHexLen)

	for _, topic := range l.Topics {
		if w, ok := topicWord(topic); ok {
			words = append(words, w)
		}
	}

	for i := 0; i+wordHexLen <= len(data); i += wordHexLen {
		chunk := data[i : i+wordHexLen]
		if !isHex(chunk) {
			break
		}
		words = append(words, model.Word("0x"+chunk))
	}
	return words
}

// Locate returns the positions of target in words, in order.
func Locate(words []model.Word, target model.Word) []int {
	positions := make([]int, 0)
	for i, w := range words {
		if w == target {
			positions = append(positions, i)
		}
	}
	return positions
}

func topicWord(topic string) (model.Word, bool) {
	t := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(topic)), "0x")
	if t == "" || len(t) > wordHexLen || !isHex(t) {
		return "", false
	}
	if len(t) < wordHexLen {
		t = strings.Repeat("0", wordHexLen-len(t)) + t
	}
	return model.Word("0x" + t), true
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		_, err := hex.DecodeString("0" + s)
		return err == nil
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
