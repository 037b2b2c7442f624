//go:build !js && !wasm
// +build !js,!wasm

package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/himanishpuri/BeatCraft/pkg/utils"
)

// DownloadYouTubeAudio fetches the audio track of a video as WAV into
// outputDir and returns the file path. Requires yt-dlp and ffmpeg on PATH.
func DownloadYouTubeAudio(ctx context.Context, youtubeURL string, outputDir string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
	}

	videoID, err := utils.ExtractYouTubeID(youtubeURL)
	if err != nil {
		return "", err
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputTemplate := filepath.Join(outputDir, videoID+".%(ext)s")

	dl := ytdlp.New().
		NoPlaylist().
		ExtractAudio().
		AudioFormat("wav").
		Output(outputTemplate)

	if _, err := dl.Run(ctx, youtubeURL); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp download failed: %w", err)
	}

	audioPath := filepath.Join(outputDir, videoID+".wav")
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("downloaded audio file not found for video %s: %w", videoID, err)
	}
	return audioPath, nil
}
