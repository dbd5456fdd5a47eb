package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGeneratedDocumentExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, GeneratedDocument{}.Expired(now), "zero ExpiresAt never expires")
	assert.False(t, GeneratedDocument{ExpiresAt: now.Add(time.Second)}.Expired(now))
	assert.True(t, GeneratedDocument{ExpiresAt: now}.Expired(now))
	assert.True(t, GeneratedDocument{ExpiresAt: now.Add(-time.Hour)}.Expired(now))
}
