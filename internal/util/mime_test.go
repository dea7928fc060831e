package util

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectMIME(t *testing.T) {
	t.Parallel()

	t.Run("pdf keeps full stream", func(t *testing.T) {
		body := "%PDF-1.7\n" + strings.Repeat("a", 1024)
		mimeType, reader, err := DetectMIME(strings.NewReader(body))
		require.NoError(t, err)
		require.Equal(t, "application/pdf", mimeType)

		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		require.Equal(t, body, string(content))
	})

	t.Run("short input", func(t *testing.T) {
		mimeType, reader, err := DetectMIME(strings.NewReader("hi"))
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(mimeType, "text/plain"))

		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		require.Equal(t, "hi", string(content))
	})

	t.Run("empty input", func(t *testing.T) {
		_, reader, err := DetectMIME(strings.NewReader(""))
		require.NoError(t, err)
		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		require.Empty(t, content)
	})
}

func TestIsAllowedMIME(t *testing.T) {
	t.Parallel()

	allowed := []string{"application/pdf", "image/*"}

	require.True(t, IsAllowedMIME("application/pdf", allowed))
	require.True(t, IsAllowedMIME("IMAGE/PNG", allowed))
	require.True(t, IsAllowedMIME("text/plain; charset=utf-8", []string{"text/plain"}))
	require.False(t, IsAllowedMIME("application/zip", allowed))
	require.False(t, IsAllowedMIME("imagex/png", allowed))
	require.True(t, IsAllowedMIME("application/zip", nil))
}

func TestIsImageMIME(t *testing.T) {
	t.Parallel()

	require.True(t, IsImageMIME("image/jpeg"))
	require.True(t, IsImageMIME(" Image/PNG "))
	require.False(t, IsImageMIME("application/pdf"))
}
