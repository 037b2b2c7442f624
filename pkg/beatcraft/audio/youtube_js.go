//go:build js || wasm
// +build js wasm

package audio

import (
	"context"
	"errors"
)

// DownloadYouTubeAudio needs yt-dlp and is not available in the browser.
func DownloadYouTubeAudio(ctx context.Context, youtubeURL string, outputDir string) (string, error) {
	return "", errors.New("youtube download is not supported in wasm builds")
}
