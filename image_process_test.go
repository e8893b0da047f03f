package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imco/batch"
	"imco/format"
	"imco/imerr"
	"imco/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		img.Set(x, 1, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func testConfig() *Config {
	return &Config{
		Workers:      1,
		Quality:      80,
		QualityAlpha: 80,
		Speed:        6,
		JPEGQuality:  90,
		MaxAllocMiB:  512,
	}
}

func newTestProcessor(cfg *Config, out io.Writer) *Processor {
	console := logger.NewConsole(&logger.RichLoggerOptions{Output: io.Discard, Level: slog.LevelDebug})
	return NewProcessor(cfg, console, out)
}

func requireKind(t *testing.T, err error, kind imerr.Kind) *imerr.Error {
	t.Helper()
	var ie *imerr.Error
	require.True(t, errors.As(err, &ie), "want *imerr.Error, got %T: %v", err, err)
	require.Equal(t, kind, ie.Kind, ie.Error())
	return ie
}

func TestFailFastStopsAtFirstError(t *testing.T) {
	dir := t.TempDir()
	good, bad, good2 := filepath.Join(dir, "good.png"), filepath.Join(dir, "bad.png"), filepath.Join(dir, "good2.png")
	writePNG(t, good)
	writePNG(t, good2)

	var out bytes.Buffer
	stats, err := newTestProcessor(testConfig(), &out).Run(context.Background(), batch.Options{
		Inputs:  []string{good, bad, good2},
		Outputs: []string{filepath.Join(dir, "good.bmp"), filepath.Join(dir, "bad.bmp"), filepath.Join(dir, "good2.bmp")},
	})

	ie := requireKind(t, err, imerr.KindFailedFileRead)
	assert.Equal(t, imerr.ReasonNotFound, ie.Reason)
	assert.Equal(t, bad, ie.Path)

	assert.Equal(t, fmt.Sprintf("%s (png) -> %s (bmp)\n", good, filepath.Join(dir, "good.bmp")), out.String())
	assert.NoFileExists(t, filepath.Join(dir, "good2.bmp"))
	assert.Equal(t, 1, stats.SuccessfulFiles)
	assert.Equal(t, 1, stats.FailedFiles)
}

func TestNoDestinationRejectedBeforeReading(t *testing.T) {
	var out bytes.Buffer
	_, err := newTestProcessor(testConfig(), &out).Run(context.Background(), batch.Options{
		Inputs: []string{filepath.Join(t.TempDir(), "does-not-exist.png")},
	})
	requireKind(t, err, imerr.KindNoDestFormat)
	assert.Empty(t, out.String())
}

func TestBatchWithoutOutputFormatRejected(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "in", "a.png"))
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0o755))

	_, err := newTestProcessor(testConfig(), io.Discard).Run(context.Background(), batch.Options{
		Inputs:  []string{filepath.Join(dir, "in", "*.png")},
		Outputs: []string{outDir},
		Batch:   true,
	})
	requireKind(t, err, imerr.KindInvalidBatching)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEmptyBatchStillChecksDestination(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "*.png")

	_, err := newTestProcessor(testConfig(), io.Discard).Run(context.Background(), batch.Options{
		Inputs:  []string{pattern},
		Outputs: []string{dir},
		Batch:   true,
	})
	requireKind(t, err, imerr.KindInvalidBatching)

	_, err = newTestProcessor(testConfig(), io.Discard).Run(context.Background(), batch.Options{
		Inputs: []string{pattern},
		Batch:  true,
	})
	requireKind(t, err, imerr.KindNoDestFormat)
}

func TestBatchConvertsIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "in", "b.png"))
	writePNG(t, filepath.Join(dir, "in", "a.png"))
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0o755))

	var out bytes.Buffer
	stats, err := newTestProcessor(testConfig(), &out).Run(context.Background(), batch.Options{
		Inputs:       []string{filepath.Join(dir, "in", "*.png")},
		Outputs:      []string{outDir},
		OutputFormat: format.TIFF,
		Batch:        true,
	})
	require.NoError(t, err)

	want := fmt.Sprintf("%s (png) -> %s (tiff)\n%s (png) -> %s (tiff)\n",
		filepath.Join(dir, "in", "a.png"), filepath.Join(outDir, "a.tiff"),
		filepath.Join(dir, "in", "b.png"), filepath.Join(outDir, "b.tiff"))
	assert.Equal(t, want, out.String())
	assert.FileExists(t, filepath.Join(outDir, "a.tiff"))
	assert.FileExists(t, filepath.Join(outDir, "b.tiff"))
	assert.Equal(t, 2, stats.SuccessfulFiles)
	assert.Positive(t, stats.TotalConvertedSize)
}

func TestDerivedOutputLandsInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "sub", "photo.png"))
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var out bytes.Buffer
	_, err := newTestProcessor(testConfig(), &out).Run(context.Background(), batch.Options{
		Inputs:       []string{filepath.Join("sub", "photo.png")},
		OutputFormat: format.JPEG,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("sub", "photo.png")+" (png) -> photo.jpg (jpg)\n", out.String())
	assert.FileExists(t, filepath.Join(dir, "photo.jpg"))
}

func TestInputFormatDetection(t *testing.T) {
	dir := t.TempDir()
	noExt := filepath.Join(dir, "image")
	writePNG(t, noExt)

	var out bytes.Buffer
	p := newTestProcessor(testConfig(), &out)

	_, err := p.Run(context.Background(), batch.Options{
		Inputs:  []string{noExt},
		Outputs: []string{filepath.Join(dir, "sniffed.gif")},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), noExt+" (png) -> ")

	out.Reset()
	_, err = p.Run(context.Background(), batch.Options{
		Inputs:      []string{noExt},
		Outputs:     []string{filepath.Join(dir, "forced.gif")},
		InputFormat: format.JPEG,
	})
	ie := requireKind(t, err, imerr.KindDecoding)
	assert.Equal(t, noExt, ie.Path)
	assert.Empty(t, out.String())
}

func TestUnknownOutputExtension(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writePNG(t, src)

	_, err := newTestProcessor(testConfig(), io.Discard).Run(context.Background(), batch.Options{
		Inputs:  []string{src},
		Outputs: []string{filepath.Join(dir, "a.zzz")},
	})
	ie := requireKind(t, err, imerr.KindInvalidFormat)
	assert.Equal(t, filepath.Join(dir, "a.zzz"), ie.Token)
}

func TestUnsupportedOutputFormat(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writePNG(t, src)

	_, err := newTestProcessor(testConfig(), io.Discard).Run(context.Background(), batch.Options{
		Inputs:       []string{src},
		Outputs:      []string{filepath.Join(dir, "a.webp")},
		OutputFormat: format.WEBP,
	})
	requireKind(t, err, imerr.KindUnsupported)
	assert.Equal(t, "Unsupported image format or not allowed format (webp) during conversion of '"+src+"'", err.Error())
	assert.NoFileExists(t, filepath.Join(dir, "a.webp"))
}

func TestWriteFailureReportsOutputPath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writePNG(t, src)
	dst := filepath.Join(dir, "missing", "a.bmp")

	_, err := newTestProcessor(testConfig(), io.Discard).Run(context.Background(), batch.Options{
		Inputs:  []string{src},
		Outputs: []string{dst},
	})
	ie := requireKind(t, err, imerr.KindFailedFileWrite)
	assert.Equal(t, dst, ie.Path)
	assert.Equal(t, imerr.ReasonNotFound, ie.Reason)
}

func TestResourceLimit(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writePNG(t, src)

	p := newTestProcessor(testConfig(), io.Discard)
	p.Codec.Limits.MaxAlloc = 8

	_, err := p.Run(context.Background(), batch.Options{
		Inputs:  []string{src},
		Outputs: []string{filepath.Join(dir, "a.bmp")},
	})
	requireKind(t, err, imerr.KindResourceLimit)
}

func numbered(t *testing.T, dir string, n int) (inputs, outputs []string) {
	t.Helper()
	for i := 0; i < n; i++ {
		in := filepath.Join(dir, fmt.Sprintf("img%02d.png", i))
		writePNG(t, in)
		inputs = append(inputs, in)
		outputs = append(outputs, filepath.Join(dir, fmt.Sprintf("img%02d.bmp", i)))
	}
	return inputs, outputs
}

func TestParallelKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	inputs, outputs := numbered(t, dir, 12)

	cfg := testConfig()
	cfg.Workers = 4

	var out bytes.Buffer
	stats, err := newTestProcessor(cfg, &out).Run(context.Background(), batch.Options{Inputs: inputs, Outputs: outputs})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(inputs))
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("%s (png) -> %s (bmp)", inputs[i], outputs[i]), line)
	}
	assert.Equal(t, 12, stats.SuccessfulFiles)
}

func TestParallelFailFastReportsEarlierSuccesses(t *testing.T) {
	dir := t.TempDir()
	inputs, outputs := numbered(t, dir, 8)
	require.NoError(t, os.Remove(inputs[3]))

	cfg := testConfig()
	cfg.Workers = 3

	var out bytes.Buffer
	_, err := newTestProcessor(cfg, &out).Run(context.Background(), batch.Options{Inputs: inputs, Outputs: outputs})
	ie := requireKind(t, err, imerr.KindFailedFileRead)
	assert.Equal(t, inputs[3], ie.Path)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		assert.Equal(t, fmt.Sprintf("%s (png) -> %s (bmp)", inputs[i], outputs[i]), line)
	}
}

func TestKeepGoingCollectsFailures(t *testing.T) {
	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			dir := t.TempDir()
			inputs, outputs := numbered(t, dir, 4)
			require.NoError(t, os.Remove(inputs[1]))
			require.NoError(t, os.WriteFile(inputs[2], []byte("garbage"), 0o644))

			cfg := testConfig()
			cfg.Workers = workers
			cfg.KeepGoing = true

			var out bytes.Buffer
			stats, err := newTestProcessor(cfg, &out).Run(context.Background(), batch.Options{Inputs: inputs, Outputs: outputs})
			require.Error(t, err)

			msgs := strings.Split(err.Error(), "\n")
			require.Len(t, msgs, 2)
			assert.Equal(t, "Failed reading '"+inputs[1]+"' => Not found", msgs[0])
			assert.True(t, strings.HasPrefix(msgs[1], "Error during decoding of '"+inputs[2]+"'"), msgs[1])
			assert.True(t, errors.Is(err, &imerr.Error{Kind: imerr.KindDecoding}))

			assert.Equal(t, fmt.Sprintf("%s (png) -> %s (bmp)\n%s (png) -> %s (bmp)\n",
				inputs[0], outputs[0], inputs[3], outputs[3]), out.String())
			assert.Equal(t, 2, stats.SuccessfulFiles)
			assert.Equal(t, 2, stats.FailedFiles)
		})
	}
}

func TestCancelledContextStopsRun(t *testing.T) {
	dir := t.TempDir()
	inputs, outputs := numbered(t, dir, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := newTestProcessor(testConfig(), &out).Run(ctx, batch.Options{Inputs: inputs, Outputs: outputs})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

func TestCancelledKeepGoingStopsWithoutJoining(t *testing.T) {
	dir := t.TempDir()
	inputs, outputs := numbered(t, dir, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := testConfig()
	cfg.Workers = 2
	cfg.KeepGoing = true
	_, err := newTestProcessor(cfg, io.Discard).Run(ctx, batch.Options{Inputs: inputs, Outputs: outputs})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "Conversion interrupted", exitMessage(err))
	for _, o := range outputs {
		assert.NoFileExists(t, o)
	}
}

func TestEmptyBatchIsNotAnError(t *testing.T) {
	stats, err := newTestProcessor(testConfig(), io.Discard).Run(context.Background(), batch.Options{
		Inputs:       []string{filepath.Join(t.TempDir(), "*.png")},
		OutputFormat: format.PNG,
		Batch:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalFiles)
}

func TestVerboseSummary(t *testing.T) {
	dir := t.TempDir()
	inputs, outputs := numbered(t, dir, 1)

	var logs bytes.Buffer
	cfg := testConfig()
	cfg.Verbose = true
	console := logger.NewConsole(&logger.RichLoggerOptions{Output: &logs, Level: slog.LevelDebug})

	_, err := NewProcessor(cfg, console, io.Discard).Run(context.Background(), batch.Options{Inputs: inputs, Outputs: outputs})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Processed files")
	assert.Contains(t, logs.String(), "1/1")
	assert.Contains(t, logs.String(), "✓ Converted 1 of 1 files")
}

func TestVerboseKeepGoingLogsEachFailure(t *testing.T) {
	dir := t.TempDir()
	inputs, outputs := numbered(t, dir, 3)
	require.NoError(t, os.Remove(inputs[0]))
	require.NoError(t, os.Remove(inputs[2]))

	var logs bytes.Buffer
	cfg := testConfig()
	cfg.Verbose = true
	cfg.KeepGoing = true
	console := logger.NewConsole(&logger.RichLoggerOptions{Output: &logs, Level: slog.LevelInfo})

	_, err := NewProcessor(cfg, console, io.Discard).Run(context.Background(), batch.Options{Inputs: inputs, Outputs: outputs})
	require.Error(t, err)

	got := logs.String()
	assert.Contains(t, got, "✖ Failed reading '"+inputs[0]+"' => Not found")
	assert.Contains(t, got, "✖ Failed reading '"+inputs[2]+"' => Not found")
	assert.NotContains(t, got, "✓ Converted")
}

func TestOutcomeString(t *testing.T) {
	o := Outcome{InputPath: "a.jpg", InputFormat: format.JPEG, OutputPath: "a.png", OutputFormat: format.PNG}
	assert.Equal(t, "a.jpg (jpg) -> a.png (png)", o.String())

	o.InputFormat = format.Unknown
	assert.Equal(t, "a.jpg -> a.png (png)", o.String())
}
