package pdfreport

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func dataURI(t *testing.T, w, h int) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, w, h))
}

func TestRender_SingleNote(t *testing.T) {
	started := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	res, err := Render(Document{
		Title:    "Weekly report",
		Subtitle: "Lab A",
		Experiment: &Experiment{
			Name:      "Buffer titration",
			Status:    "in_progress",
			StartedAt: &started,
		},
		Notes: []Note{{
			Title:     "Day 1",
			Author:    "Ada",
			CreatedAt: started,
			HTML:      "<p>pH 7.4 stable</p>",
		}},
	})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF")))
	assert.Equal(t, 1, res.Pages)
}

func TestRender_LongContentPaginates(t *testing.T) {
	paragraph := "<p>" + strings.Repeat("Measured absorbance at 600 nm across the plate. ", 10) + "</p>"
	notes := make([]Note, 0, 10)
	for i := 0; i < 10; i++ {
		notes = append(notes, Note{
			Title:     "Observation",
			CreatedAt: time.Now(),
			HTML:      strings.Repeat(paragraph, 8),
		})
	}

	res, err := Render(Document{Title: "Long report", Notes: notes})
	require.NoError(t, err)
	assert.Greater(t, res.Pages, 1)
}

func TestRender_Images(t *testing.T) {
	var resolved []string
	doc := Document{
		Title:  "Images",
		Images: true,
		Notes: []Note{{
			Title: "Gel",
			HTML: `<p>lane 1</p><img src="` + dataURI(t, 64, 32) + `">` +
				`<img src="/api/attachments/3/download"><img src="https://example.com/x.png">` +
				`<img src="data:image/png;base64,!!!">`,
		}},
		Resolve: func(src string) ([]byte, error) {
			resolved = append(resolved, src)
			if src == "/api/attachments/3/download" {
				return pngBytes(t, 2000, 500), nil
			}
			return nil, errors.New("not allowed")
		},
	}

	res, err := Render(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF")))
	assert.Equal(t, []string{"/api/attachments/3/download", "https://example.com/x.png"}, resolved)
}

func TestRender_ImagesDisabled(t *testing.T) {
	called := false
	_, err := Render(Document{
		Title: "No images",
		Notes: []Note{{Title: "n", HTML: `<img src="/api/attachments/1/download">`}},
		Resolve: func(string) ([]byte, error) {
			called = true
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRender_TallImagesGetOwnPages(t *testing.T) {
	uri := dataURI(t, 300, 3000)
	res, err := Render(Document{
		Title:  "Tall",
		Images: true,
		Notes:  []Note{{Title: "scan", HTML: `<img src="` + uri + `"><img src="` + uri + `">`}},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Pages, 3)
}

// pngHeader возвращает PNG, в заголовке которого объявлены размеры w x h, без данных пикселей.
func pngHeader(w, h uint32) []byte {
	chunk := func(typ string, data []byte) []byte {
		out := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
		body := append([]byte(typ), data...)
		out = append(out, body...)
		return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(body))
	}
	ihdr := binary.BigEndian.AppendUint32(nil, w)
	ihdr = binary.BigEndian.AppendUint32(ihdr, h)
	ihdr = append(ihdr, 8, 2, 0, 0, 0)

	buf := []byte("\x89PNG\r\n\x1a\n")
	buf = append(buf, chunk("IHDR", ihdr)...)
	return append(buf, chunk("IEND", nil)...)
}

func TestDecodeImage_RejectsHugeDimensionsBeforeDecoding(t *testing.T) {
	_, err := decodeImage(pngHeader(8000, 8000))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	img, err := decodeImage(pngBytes(t, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestRender_HugeImageFallsBackToPlaceholder(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader(8000, 8000))
	res, err := Render(Document{
		Title:  "Huge",
		Images: true,
		Notes:  []Note{{Title: "bomb", HTML: `<img src="` + uri + `">`}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF")))
	assert.Equal(t, 1, res.Pages)
}

func TestFitImage(t *testing.T) {
	tests := []struct {
		name         string
		pw, ph       int
		maxW, maxH   float64
		wantW, wantH float64
	}{
		{"small image keeps natural size", 96, 48, 180, 267, 25.4, 12.7},
		{"wide image scales to width", 1920, 960, 180, 267, 180, 90},
		{"tall image scales to height", 500, 5000, 180, 267, 26.7, 267},
		{"degenerate", 0, 10, 180, 267, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitImage(tt.pw, tt.ph, tt.maxW, tt.maxH)
			assert.InDelta(t, tt.wantW, w, 0.01)
			assert.InDelta(t, tt.wantH, h, 0.01)
			if tt.pw > 0 && tt.ph > 0 {
				assert.InDelta(t, float64(tt.pw)/float64(tt.ph), w/h, 0.001, "aspect ratio must be preserved")
			}
		})
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, err := DecodeDataURI("data:text/plain;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = DecodeDataURI("data:text/plain,hello%20world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	_, err = DecodeDataURI("data:image/png;base64")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = DecodeDataURI("data:image/png;base64,%%%")
	assert.Error(t, err)
}
