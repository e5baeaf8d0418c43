// Package pdfreport собирает многостраничный PDF-отчёт из заметок:
// заголовок, метаданные эксперимента, текст заметок и встроенные изображения.
package pdfreport

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // декодер GIF
	"image/jpeg"
	_ "image/png" // декодер PNG
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/htmltext"
	"github.com/phpdave11/gofpdf"
)

// Геометрия страницы A4 в миллиметрах.
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	margin       = 15.0
	contentWidth = pageWidth - 2*margin
	contentBot   = pageHeight - margin
	lineHeight   = 5.5
	pxToMM       = 25.4 / 96
	jpegQuality  = 85

	// MaxImagePixels: предельная площадь встраиваемого изображения.
	MaxImagePixels = 16_000_000
)

var (
	// ErrUnsupportedImage: источник изображения не поддерживается.
	ErrUnsupportedImage = errors.New("unsupported image source")
	// ErrImageTooLarge: изображение больше MaxImagePixels.
	ErrImageTooLarge = errors.New("image too large")
)

// Experiment: метаданные эксперимента, печатаемые под заголовком.
type Experiment struct {
	Name        string
	Status      string
	Description string
	StartedAt   *time.Time
	EndedAt     *time.Time
}

// Note: заметка, включаемая в отчёт.
type Note struct {
	Title     string
	Author    string
	CreatedAt time.Time
	HTML      string
}

// Document описывает отчёт.
type Document struct {
	Title       string
	Subtitle    string
	Experiment  *Experiment
	Notes       []Note
	Images      bool
	GeneratedAt time.Time
	// Resolve загружает изображение по src, который не является data: URI.
	// Если nil, такие изображения пропускаются.
	Resolve func(src string) ([]byte, error)
}

// Result: готовый PDF.
type Result struct {
	PDF   []byte
	Pages int
}

type renderer struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	doc    Document
	images int
}

// Render строит PDF. Вертикальное место проверяется перед каждым блоком,
// при нехватке начинается новая страница.
func Render(doc Document) (*Result, error) {
	const op = "pdfreport.Render"

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("lab-notebook", true)
	pdf.AliasNbPages("{nb}")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), doc: doc}
	pdf.AddPage()
	r.header()
	if doc.Experiment != nil {
		r.experiment(*doc.Experiment)
	}
	for i, n := range doc.Notes {
		r.note(n, i > 0)
	}

	pages := pdf.PageCount()
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Result{PDF: buf.Bytes(), Pages: pages}, nil
}

// ensureSpace начинает новую страницу, если до нижнего поля осталось меньше h.
func (r *renderer) ensureSpace(h float64) {
	if r.pdf.GetY()+h > contentBot {
		r.pdf.AddPage()
	}
}

func (r *renderer) header() {
	pdf := r.pdf
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(0, 9, r.tr(r.doc.Title), "", "L", false)
	if r.doc.Subtitle != "" {
		pdf.SetFont("Helvetica", "I", 13)
		pdf.SetTextColor(80, 80, 80)
		pdf.MultiCell(0, 7, r.tr(r.doc.Subtitle), "", "L", false)
	}
	generated := r.doc.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 6, "Generated "+generated.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func (r *renderer) experiment(e Experiment) {
	pdf := r.pdf
	r.ensureSpace(30)
	pdf.SetFillColor(240, 240, 245)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, r.tr("Experiment: "+e.Name), "", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	meta := []string{}
	if e.Status != "" {
		meta = append(meta, "Status: "+strings.ReplaceAll(e.Status, "_", " "))
	}
	if e.StartedAt != nil {
		meta = append(meta, "Started: "+e.StartedAt.Format("2006-01-02"))
	}
	if e.EndedAt != nil {
		meta = append(meta, "Ended: "+e.EndedAt.Format("2006-01-02"))
	}
	if len(meta) > 0 {
		pdf.CellFormat(0, 6, r.tr(strings.Join(meta, "   ")), "", 1, "L", true, 0, "")
	}
	if e.Description != "" {
		pdf.MultiCell(0, lineHeight, r.tr(e.Description), "", "L", true)
	}
	pdf.Ln(4)
}

func (r *renderer) note(n Note, separator bool) {
	pdf := r.pdf
	r.ensureSpace(25)
	if separator {
		y := pdf.GetY()
		pdf.SetDrawColor(200, 200, 200)
		pdf.Line(margin, y, pageWidth-margin, y)
		pdf.Ln(3)
	}

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 7, r.tr(n.Title), "", "L", false)

	meta := n.CreatedAt.Format("2006-01-02 15:04")
	if n.Author != "" {
		meta = n.Author + ", " + meta
	}
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 5, r.tr(meta), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetTextColor(0, 0, 0)
	for _, seg := range htmltext.Extract(n.HTML).Segments {
		if seg.IsImage() {
			if r.doc.Images {
				r.image(seg.ImageSrc)
			}
			continue
		}
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, lineHeight, r.tr(seg.Text), "", "L", false)
		pdf.Ln(1)
	}
	pdf.Ln(4)
}

func (r *renderer) image(src string) {
	pdf := r.pdf
	data, err := r.load(src)
	var img image.Image
	if err == nil {
		img, err = decodeImage(data)
	}
	if err != nil {
		r.placeholder()
		return
	}

	bounds := img.Bounds()
	w, h := FitImage(bounds.Dx(), bounds.Dy(), contentWidth, contentBot-margin)
	if w == 0 || h == 0 {
		r.placeholder()
		return
	}

	jpg, err := toJPEG(img)
	if err != nil {
		r.placeholder()
		return
	}

	r.images++
	name := fmt.Sprintf("img%d", r.images)
	opts := gofpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(jpg))

	r.ensureSpace(h)
	y := pdf.GetY()
	pdf.ImageOptions(name, margin, y, w, h, false, opts, 0, "")
	pdf.SetY(y + h + 3)
}

// decodeImage декодирует изображение, предварительно проверив размеры по заголовку.
func decodeImage(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func (r *renderer) placeholder() {
	r.pdf.SetFont("Helvetica", "I", 9)
	r.pdf.SetTextColor(150, 150, 150)
	r.pdf.CellFormat(0, lineHeight, "[image could not be embedded]", "", 1, "L", false, 0, "")
	r.pdf.SetTextColor(0, 0, 0)
}

func (r *renderer) load(src string) ([]byte, error) {
	if strings.HasPrefix(src, "data:") {
		return DecodeDataURI(src)
	}
	if r.doc.Resolve == nil {
		return nil, ErrUnsupportedImage
	}
	return r.doc.Resolve(src)
}

// FitImage масштабирует изображение размером pw x ph пикселей с сохранением пропорций
// так, чтобы оно помещалось в maxW x maxH миллиметров. Маленькие изображения не растягиваются.
func FitImage(pw, ph int, maxW, maxH float64) (float64, float64) {
	if pw <= 0 || ph <= 0 {
		return 0, 0
	}
	w := float64(pw) * pxToMM
	h := float64(ph) * pxToMM
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}
	if h > maxH {
		w = w * maxH / h
		h = maxH
	}
	return w, h
}

// DecodeDataURI декодирует data: URI (base64 или percent-encoded).
func DecodeDataURI(src string) ([]byte, error) {
	const op = "pdfreport.DecodeDataURI"

	header, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrUnsupportedImage)
	}
	if strings.HasSuffix(header, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(payload)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return data, nil
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return []byte(decoded), nil
}

// toJPEG перекодирует изображение в JPEG на белом фоне.
func toJPEG(img image.Image) ([]byte, error) {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
