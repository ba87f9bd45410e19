package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobIsOpen(t *testing.T) {
	assert.True(t, Job{Status: "open"}.IsOpen())
	assert.True(t, Job{Status: " OPEN "}.IsOpen())
	assert.False(t, Job{Status: "closed"}.IsOpen())
	assert.False(t, Job{}.IsOpen())
}

func TestTextSkipsEmptyFields(t *testing.T) {
	p := Profile{Title: "Coach", Bio: "  ", Location: "Dubai"}
	assert.Equal(t, "Coach\nDubai", p.Text())

	j := Job{Title: "Coach", Region: "Abu Dhabi"}
	assert.Equal(t, "Coach\nAbu Dhabi", j.Text())
}

func TestEmbeddingValid(t *testing.T) {
	assert.False(t, Embedding(nil).Valid())
	assert.True(t, Embedding{0.1}.Valid())
}
