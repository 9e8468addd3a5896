package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when the provided dimensions are not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions: width and height must be positive")
	// ErrInvalidDuration is returned when duration is not positive.
	ErrInvalidDuration = errors.New("invalid duration: must be positive")
	// ErrNoImagePaths is returned when no images are provided for a slideshow.
	ErrNoImagePaths = errors.New("no image paths provided")
)

// FFmpegRenderer implements Renderer using the ffmpeg CLI.
type FFmpegRenderer struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegRenderer creates a new FFmpegRenderer.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegRenderer(ffmpegPath string) *FFmpegRenderer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegRenderer{ffmpegPath: ffmpegPath}
}

// ExtractLastFrame extracts the final frame of a video as a PNG image.
func (r *FFmpegRenderer) ExtractLastFrame(ctx context.Context, videoPath, destPath string) error {
	// -sseof -0.1 seeks to just before the end of the stream so the
	// last decodable frame is the one emitted.
	args := []string{
		"-y",
		"-sseof", "-0.1",
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		destPath,
	}
	return r.runFFmpeg(ctx, args)
}

// RenderSlideshow assembles still images into a video of the exact
// target duration. Each image gets an equal share of the duration and
// a slow zoom so the result reads as motion rather than a static card.
func (r *FFmpegRenderer) RenderSlideshow(ctx context.Context, imagePaths []string, output string, durationSec float64, w, h int) error {
	if len(imagePaths) == 0 {
		return ErrNoImagePaths
	}
	if durationSec <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidDuration, durationSec)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, w, h)
	}

	const fps = 25
	perImage := durationSec / float64(len(imagePaths))
	framesPerImage := int(perImage * fps)
	if framesPerImage < 1 {
		framesPerImage = 1
	}

	args := []string{"-y"}
	for _, p := range imagePaths {
		args = append(args, "-loop", "1", "-t", fmt.Sprintf("%.3f", perImage), "-i", p)
	}

	// Per-input: scale with padding to the target frame, slow zoompan,
	// then concat all segments.
	var filter strings.Builder
	for i := range imagePaths {
		fmt.Fprintf(&filter,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,"+
				"zoompan=z='min(zoom+0.0015,1.3)':d=%d:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':s=%dx%d:fps=%d,"+
				"format=yuv420p[v%d];",
			i, w, h, w, h, framesPerImage, w, h, fps, i)
	}
	for i := range imagePaths {
		fmt.Fprintf(&filter, "[v%d]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=0[out]", len(imagePaths))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[out]",
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		output,
	)
	return r.runFFmpeg(ctx, args)
}

// RenderCaption renders a caption over a solid background color for the
// exact target duration.
func (r *FFmpegRenderer) RenderCaption(ctx context.Context, output string, durationSec float64, w, h int, caption, bgColor string) error {
	if durationSec <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidDuration, durationSec)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, w, h)
	}
	if bgColor == "" {
		bgColor = "black"
	}

	fontSize := h / 16
	filter := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=%d:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawtext(caption), fontSize)

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=%.3f:r=25", bgColor, w, h, durationSec),
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		output,
	}
	return r.runFFmpeg(ctx, args)
}

// RenderAnimated renders a generic animated placeholder clip.
func (r *FFmpegRenderer) RenderAnimated(ctx context.Context, output string, durationSec float64, w, h int) error {
	if durationSec <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidDuration, durationSec)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, w, h)
	}

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("gradients=s=%dx%d:d=%.3f:speed=0.05:r=25", w, h, durationSec),
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		output,
	}
	return r.runFFmpeg(ctx, args)
}

// RenderSolid renders a flat single-color clip.
func (r *FFmpegRenderer) RenderSolid(ctx context.Context, output string, durationSec float64, w, h int, color string) error {
	if durationSec <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidDuration, durationSec)
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, w, h)
	}
	if color == "" {
		color = "0x101020"
	}

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=%.3f:r=25", color, w, h, durationSec),
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		output,
	}
	return r.runFFmpeg(ctx, args)
}

// escapeDrawtext escapes characters with special meaning to ffmpeg's
// drawtext filter.
func escapeDrawtext(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(s)
}

// runFFmpeg executes ffmpeg with the given arguments and returns an
// error containing stderr output if the command fails.
func (r *FFmpegRenderer) runFFmpeg(ctx context.Context, args []string) error {
	if dir := filepath.Dir(args[len(args)-1]); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Compile-time check that FFmpegRenderer implements Renderer.
var _ Renderer = (*FFmpegRenderer)(nil)
