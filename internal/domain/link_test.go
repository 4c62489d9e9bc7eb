package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortLink_Validate(t *testing.T) {
	tests := []struct {
		name    string
		longURL string
		code    string
		wantErr error
	}{
		{
			name:    "valid https URL",
			longURL: "https://example.com/some/path?q=1",
			code:    "abc1234",
			wantErr: nil,
		},
		{
			name:    "valid http URL",
			longURL: "http://example.com",
			code:    "abcd",
			wantErr: nil,
		},
		{
			name:    "empty URL",
			longURL: "",
			code:    "abc1234",
			wantErr: ErrEmptyURL,
		},
		{
			name:    "whitespace URL",
			longURL: "   ",
			code:    "abc1234",
			wantErr: ErrEmptyURL,
		},
		{
			name:    "relative path",
			longURL: "/just/a/path",
			code:    "abc1234",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "missing scheme",
			longURL: "example.com/page",
			code:    "abc1234",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "unsupported scheme",
			longURL: "ftp://example.com/file",
			code:    "abc1234",
			wantErr: ErrInvalidURL,
		},
		{
			name:    "code too short",
			longURL: "https://example.com",
			code:    "abc",
			wantErr: ErrInvalidCode,
		},
		{
			name:    "code too long",
			longURL: "https://example.com",
			code:    "abcdefghijklmnopqrstu",
			wantErr: ErrInvalidCode,
		},
		{
			name:    "code with punctuation",
			longURL: "https://example.com",
			code:    "ab-c12",
			wantErr: ErrInvalidCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := NewShortLink(tt.code, tt.longURL, "user1")

			err := link.Validate()

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShortLink_CanBeAccessed(t *testing.T) {
	link := NewShortLink("abc1234", "https://example.com", "user1")
	require.NoError(t, link.CanBeAccessed())

	link.IsActive = false
	assert.ErrorIs(t, link.CanBeAccessed(), ErrLinkNotActive)

	link.IsActive = true
	link.WithExpiration(-time.Hour)
	assert.ErrorIs(t, link.CanBeAccessed(), ErrLinkExpired)
}

func TestShortLink_IsExpired(t *testing.T) {
	link := NewShortLink("abc1234", "https://example.com", "user1")
	assert.False(t, link.IsExpired(), "nil ExpiresAt means never expires")

	link.WithExpiration(time.Hour)
	assert.False(t, link.IsExpired())

	link.WithExpiration(-time.Minute)
	assert.True(t, link.IsExpired())
}
