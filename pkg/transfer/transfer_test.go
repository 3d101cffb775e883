package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/license-fn/qrcode-file-transfer/pkg/dirguard"
	"github.com/license-fn/qrcode-file-transfer/pkg/qrimage"
)

// memoryCodes stands in for QR images: Render stores the text by path and
// Scan returns it.
type memoryCodes struct {
	images map[string][]string
}

func newMemoryCodes() *memoryCodes {
	return &memoryCodes{images: make(map[string][]string)}
}

func (m *memoryCodes) Render(path string, text []byte) error {
	m.images[path] = []string{string(text)}
	return nil
}

func (m *memoryCodes) Scan(path string) ([]string, error) {
	texts, ok := m.images[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", qrimage.ErrNotImage, path)
	}
	return texts, nil
}

func (m *memoryCodes) paths() []string {
	var paths []string
	for p := range m.images {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(path string, text []byte) error {
	args := m.Called(path, text)
	return args.Error(0)
}

type mockScanner struct {
	mock.Mock
}

func (m *mockScanner) Scan(path string) ([]string, error) {
	args := m.Called(path)
	texts, _ := args.Get(0).([]string)
	return texts, args.Error(1)
}

func writeInput(t *testing.T, dir, name string, data []byte) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestEncodeFile(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "qr")
	input := writeInput(t, dir, "hello.txt", []byte("hello world"))

	renderer := &mockRenderer{}
	for i, data := range []string{"aGVs", "bG8g", "d29y", "bGQ="} {
		text := fmt.Sprintf(`{"chunkNumber":%d,"totalChunks":3,"name":"hello.txt","data":"%s"}`, i, data)
		renderer.On("Render", filepath.Join(outDir, fmt.Sprintf("hello.txt_q%d.png", i)), []byte(text)).Return(nil).Once()
	}

	var out bytes.Buffer
	enc := NewEncoder(renderer, btclog.Disabled, &out)
	enc.Budget = 4

	report, err := enc.EncodeFile(input, outDir)
	require.NoError(t, err)
	renderer.AssertExpectations(t)

	assert.Equal(t, "hello.txt", report.Name)
	assert.Equal(t, 4, report.Chunks)
	assert.Len(t, report.Images, 4)
	assert.NotEmpty(t, report.CID)
	assert.DirExists(t, outDir)
	assert.Contains(t, out.String(), "Encoding file hello.txt...")
	assert.Contains(t, out.String(), "Encoded file hello.txt in 4 QR codes.")
}

func TestEncodeFilesContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeInput(t, dir, "good.bin", []byte{0, 1, 2, 3})
	missing := filepath.Join(dir, "missing.bin")

	codes := newMemoryCodes()
	var out bytes.Buffer
	enc := NewEncoder(codes, btclog.Disabled, &out)

	reports, err := enc.EncodeFiles([]string{missing, good}, dir)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "good.bin", reports[0].Name)
	assert.Contains(t, out.String(), "Unable to read input file "+missing)
	assert.Equal(t, []string{filepath.Join(dir, "good.bin_q0.png")}, codes.paths())
}

func TestEncodeReportsFailuresOnce(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.bin")

	var out bytes.Buffer
	log := btclog.NewBackend(&out).Logger("ENCD")
	log.SetLevel(btclog.LevelInfo)

	reports, err := NewEncoder(newMemoryCodes(), log, &out).EncodeFiles([]string{missing}, dir)
	require.NoError(t, err)
	assert.Empty(t, reports)

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "Unable to read input file"), text)
	assert.NotContains(t, text, "[ERR]")
}

func TestEncodeRenderFailure(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "f.bin", []byte("abc"))

	renderer := &mockRenderer{}
	renderer.On("Render", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	var out bytes.Buffer
	enc := NewEncoder(renderer, btclog.Disabled, &out)

	_, err := enc.EncodeFile(input, dir)
	assert.Error(t, err)

	reports, err := enc.EncodeFiles([]string{input}, dir)
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Contains(t, out.String(), "Unable to encode file")
}

func TestEncodeOutputDirError(t *testing.T) {
	dir := t.TempDir()
	notDir := writeInput(t, dir, "occupied", []byte("x"))
	input := writeInput(t, dir, "f.bin", []byte("abc"))

	renderer := &mockRenderer{}
	var out bytes.Buffer
	enc := NewEncoder(renderer, btclog.Disabled, &out)

	_, err := enc.EncodeFiles([]string{input}, notDir)
	var dirErr *OutputDirError
	require.ErrorAs(t, err, &dirErr)
	assert.ErrorIs(t, err, dirguard.ErrNotDirectory)
	renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestDecodeRecoversFile(t *testing.T) {
	dir := t.TempDir()
	original := []byte("hello world")
	input := writeInput(t, dir, "hello.txt", original)

	codes := newMemoryCodes()
	enc := NewEncoder(codes, btclog.Disabled, nil)
	enc.Budget = 4
	encReport, err := enc.EncodeFile(input, filepath.Join(dir, "qr"))
	require.NoError(t, err)

	// Feed the images in reverse order.
	images := codes.paths()
	for i, j := 0, len(images)-1; i < j; i, j = i+1, j-1 {
		images[i], images[j] = images[j], images[i]
	}

	var out bytes.Buffer
	dec := NewDecoder(codes, btclog.Disabled, &out)
	dec.Prefix = "cloned_"
	outDir := filepath.Join(dir, "restored")

	report, err := dec.Decode(images, outDir)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)

	fr := report.Files[0]
	assert.True(t, fr.Recovered())
	assert.Equal(t, filepath.Join(outDir, "cloned_hello.txt"), fr.Path)
	assert.Equal(t, encReport.CID, fr.CID)
	assert.Equal(t, 4, report.Payloads)

	restored, err := os.ReadFile(fr.Path)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
	assert.Contains(t, out.String(), "Successfully decoded file: hello.txt")
}

func TestDecodeReportsMissingChunks(t *testing.T) {
	dir := t.TempDir()
	scanner := &mockScanner{}
	scanner.On("Scan", "q0.png").Return([]string{`{"chunkNumber":0,"totalChunks":3,"name":"f.txt","data":"aGVs"}`}, nil)
	scanner.On("Scan", "q23.png").Return([]string{
		`{"chunkNumber":2,"totalChunks":3,"name":"f.txt","data":"d29y"}`,
		`{"chunkNumber":3,"totalChunks":3,"name":"f.txt","data":"bGQ="}`,
	}, nil)

	var out bytes.Buffer
	dec := NewDecoder(scanner, btclog.Disabled, &out)

	report, err := dec.Decode([]string{"q23.png", "q0.png"}, dir)
	require.NoError(t, err)
	scanner.AssertExpectations(t)

	require.Len(t, report.Files, 1)
	assert.False(t, report.Files[0].Complete)
	assert.Equal(t, []int{1}, report.Files[0].Missing)
	assert.Contains(t, out.String(), "Missing QR codes [1] for file: f.txt")
	assert.NoFileExists(t, filepath.Join(dir, "f.txt"))
}

func TestDecodeIsolatesBadInputs(t *testing.T) {
	dir := t.TempDir()
	scanner := &mockScanner{}
	scanner.On("Scan", "notes.txt").Return(nil, fmt.Errorf("%w: notes.txt", qrimage.ErrNotImage))
	scanner.On("Scan", "broken.png").Return(nil, errors.New("unexpected EOF"))
	scanner.On("Scan", "mixed.png").Return([]string{
		`not json at all`,
		`{"chunkNumber":0,"totalChunks":0,"name":"a.txt"}`,
		`{"chunkNumber":0,"totalChunks":0,"name":"a.txt","data":"WQ=="}`,
		`{"chunkNumber":1,"totalChunks":1,"name":"a.txt","data":"WQ=="}`,
	}, nil)
	scanner.On("Scan", "blank.png").Return([]string{}, nil)

	var out bytes.Buffer
	dec := NewDecoder(scanner, btclog.Disabled, &out)

	report, err := dec.Decode([]string{"notes.txt", "broken.png", "blank.png", "mixed.png"}, dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"notes.txt", "broken.png"}, report.Skipped)
	assert.Equal(t, 3, report.Rejected)
	assert.Equal(t, 1, report.Payloads)
	require.Len(t, report.Files, 1)
	assert.True(t, report.Files[0].Recovered())
	assert.Contains(t, out.String(), `File "notes.txt" doesn't appear to be an image... skipping.`)

	restored, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Y", string(restored))
}

func TestDecodeOversizedTotalContinues(t *testing.T) {
	dir := t.TempDir()
	scanner := &mockScanner{}
	scanner.On("Scan", "huge.png").Return([]string{
		`{"chunkNumber":0,"totalChunks":9223372036854775807,"name":"x","data":"WQ=="}`,
		`{"chunkNumber":0,"totalChunks":2000000000,"name":"x","data":"WQ=="}`,
	}, nil)
	scanner.On("Scan", "good.png").Return([]string{`{"chunkNumber":0,"totalChunks":0,"name":"x","data":"WQ=="}`}, nil)

	var out bytes.Buffer
	report, err := NewDecoder(scanner, btclog.Disabled, &out).Decode([]string{"huge.png", "good.png"}, dir)
	require.NoError(t, err)
	scanner.AssertExpectations(t)

	assert.Equal(t, 2, report.Rejected)
	assert.Equal(t, 1, report.Payloads)
	require.Len(t, report.Files, 1)
	assert.True(t, report.Files[0].Recovered())

	restored, err := os.ReadFile(filepath.Join(dir, "x"))
	require.NoError(t, err)
	assert.Equal(t, "Y", string(restored))
}

func TestDecodeReportsFailuresOnce(t *testing.T) {
	dir := t.TempDir()
	scanner := &mockScanner{}
	scanner.On("Scan", "notes.txt").Return(nil, fmt.Errorf("%w: notes.txt", qrimage.ErrNotImage))
	scanner.On("Scan", "q.png").Return([]string{
		`not json at all`,
		`{"chunkNumber":1,"totalChunks":2,"name":"f.txt","data":"WQ=="}`,
	}, nil)

	// Console logging shares the writer with the status messages.
	var out bytes.Buffer
	log := btclog.NewBackend(&out).Logger("DECD")
	log.SetLevel(btclog.LevelInfo)

	_, err := NewDecoder(scanner, log, &out).Decode([]string{"notes.txt", "q.png"}, dir)
	require.NoError(t, err)

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "notes.txt"), text)
	assert.Equal(t, 1, strings.Count(text, "Dropping"), text)
	assert.Equal(t, 1, strings.Count(text, "f.txt"), text)
	assert.NotContains(t, text, "[WRN]")
	assert.NotContains(t, text, "[ERR]")
}

func TestDecodeCorruptBase64(t *testing.T) {
	dir := t.TempDir()
	scanner := &mockScanner{}
	scanner.On("Scan", "q.png").Return([]string{`{"chunkNumber":0,"totalChunks":0,"name":"bad","data":"!!!!"}`}, nil)

	var out bytes.Buffer
	report, err := NewDecoder(scanner, btclog.Disabled, &out).Decode([]string{"q.png"}, dir)
	require.NoError(t, err)

	require.Len(t, report.Files, 1)
	assert.True(t, report.Files[0].Complete)
	assert.False(t, report.Files[0].Recovered())
	assert.Error(t, report.Files[0].Err)
	assert.NoFileExists(t, filepath.Join(dir, "bad"))
}

func TestDecodeMultiplexed(t *testing.T) {
	dir := t.TempDir()
	first := writeInput(t, dir, "first.bin", bytes.Repeat([]byte{0xde, 0xad}, 300))
	second := writeInput(t, dir, "second.bin", []byte("a completely different file"))

	codes := newMemoryCodes()
	enc := NewEncoder(codes, btclog.Disabled, nil)
	enc.Budget = 16
	_, err := enc.EncodeFiles([]string{first, second}, filepath.Join(dir, "qr"))
	require.NoError(t, err)

	outDir := filepath.Join(dir, "out")
	report, err := NewDecoder(codes, btclog.Disabled, nil).Decode(codes.paths(), outDir)
	require.NoError(t, err)
	require.Len(t, report.Files, 2)

	for _, name := range []string{"first.bin", "second.bin"} {
		want, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestDecodeOutputDirError(t *testing.T) {
	dir := t.TempDir()
	scanner := &mockScanner{}

	guard := dirguard.Func(func(string) error { return errors.New("permission denied") })
	dec := NewDecoder(scanner, btclog.Disabled, nil)
	dec.Guard = guard

	_, err := dec.Decode([]string{"q.png"}, filepath.Join(dir, "out"))
	var dirErr *OutputDirError
	assert.ErrorAs(t, err, &dirErr)
	scanner.AssertNotCalled(t, "Scan", mock.Anything)
}

func TestEncodeDecodeQRImages(t *testing.T) {
	dir := t.TempDir()
	original := make([]byte, 1500)
	for i := range original {
		original[i] = byte(i * 7)
	}
	input := writeInput(t, dir, "payload.bin", original)
	qrDir := filepath.Join(dir, "qr")

	enc := NewEncoder(qrimage.NewRenderer(), btclog.Disabled, nil)
	encReport, err := enc.EncodeFile(input, qrDir)
	require.NoError(t, err)
	require.Equal(t, 4, encReport.Chunks) // 2000 base64 characters

	images := append([]string{}, encReport.Images...)
	images[0], images[3] = images[3], images[0]

	outDir := filepath.Join(dir, "out")
	report, err := NewDecoder(qrimage.NewScanner(), btclog.Disabled, nil).Decode(images, outDir)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	require.True(t, report.Files[0].Recovered())

	restored, err := os.ReadFile(filepath.Join(outDir, "payload.bin"))
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestContentID(t *testing.T) {
	a, err := ContentID([]byte("hello world"))
	require.NoError(t, err)
	b, err := ContentID([]byte("hello world"))
	require.NoError(t, err)
	c, err := ContentID([]byte("hello world!"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// CIDv1 strings default to base32 with a "b" multibase prefix.
	assert.Equal(t, byte('b'), a[0])
}

func TestFormatIndices(t *testing.T) {
	assert.Equal(t, "[]", formatIndices(nil))
	assert.Equal(t, "[1]", formatIndices([]int{1}))
	assert.Equal(t, "[0, 2, 5]", formatIndices([]int{0, 2, 5}))
}
