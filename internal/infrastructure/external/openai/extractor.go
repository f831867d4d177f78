package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/domain/entity"
	"github.com/garyjia/ai-reconciliation/pkg/utils"
)

const (
	mimePDF  = "application/pdf"
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"

	defaultMaxPages = 4
	jpegQuality     = 85
)

// ErrUnsupportedDocument is returned for uploads that are neither PDF nor image
var ErrUnsupportedDocument = errors.New("unsupported document type")

// PageRenderer turns a PDF into at most maxPages JPEG-encoded pages
type PageRenderer func(data []byte, maxPages int) ([][]byte, error)

// DocumentExtractor reads supplier documents with a vision model
type DocumentExtractor struct {
	client   ChatCompleter
	model    string
	prompt   PromptSpec
	maxPages int
	render   PageRenderer
	logger   *zap.Logger
}

// NewDocumentExtractor creates an extractor. maxPages caps how many PDF pages
// are sent per document.
func NewDocumentExtractor(client ChatCompleter, model string, prompt PromptSpec, maxPages int, logger *zap.Logger) *DocumentExtractor {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &DocumentExtractor{
		client:   client,
		model:    model,
		prompt:   prompt,
		maxPages: maxPages,
		render:   RenderPDFPages,
		logger:   logger,
	}
}

// WithRenderer replaces the PDF page renderer
func (e *DocumentExtractor) WithRenderer(render PageRenderer) *DocumentExtractor {
	e.render = render
	return e
}

type extractionPayload struct {
	Documents []struct {
		ID          string            `json:"id"`
		Date        string            `json:"date"`
		Description string            `json:"description"`
		Amount      float64           `json:"amount"`
		Items       []entity.LineItem `json:"items"`
	} `json:"documents"`
}

// Extract returns the records found in one uploaded document
func (e *DocumentExtractor) Extract(ctx context.Context, doc port.UploadedDocument) ([]entity.DocumentRecord, error) {
	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("document %s is empty", doc.Name)
	}

	images, mimeType, err := e.pageImages(doc)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no pages rendered from %s", doc.Name)
	}

	userPrompt, err := renderTemplate(e.prompt.UserTemplate, map[string]string{"DocumentName": doc.Name})
	if err != nil {
		return nil, err
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: userPrompt}}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(img)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	e.logger.Info("Extracting document with vision model",
		zap.String("document", doc.Name),
		zap.Int("pages", len(images)))

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.prompt.Temperature,
		MaxTokens:   e.prompt.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.prompt.System},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}

	content, err := firstChoice(resp)
	if err != nil {
		return nil, err
	}

	records, err := parseExtraction(content)
	if err != nil {
		e.logger.Error("Failed to parse extraction response",
			zap.String("document", doc.Name),
			zap.String("raw_response", content),
			zap.Error(err))
		return nil, err
	}

	e.logger.Info("Document extracted",
		zap.String("document", doc.Name),
		zap.Int("records", len(records)))
	return records, nil
}

func (e *DocumentExtractor) pageImages(doc port.UploadedDocument) ([][]byte, string, error) {
	switch detectMimeType(doc) {
	case mimePDF:
		pages, err := e.render(doc.Data, e.maxPages)
		if err != nil {
			return nil, "", fmt.Errorf("failed to convert PDF: %w", err)
		}
		return pages, mimeJPEG, nil
	case mimeJPEG:
		return [][]byte{doc.Data}, mimeJPEG, nil
	case mimePNG:
		return [][]byte{doc.Data}, mimePNG, nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, doc.Name)
	}
}

func detectMimeType(doc port.UploadedDocument) string {
	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".pdf":
		return mimePDF
	case ".jpg", ".jpeg":
		return mimeJPEG
	case ".png":
		return mimePNG
	}

	ct := strings.ToLower(doc.ContentType)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	switch strings.TrimSpace(ct) {
	case mimePDF:
		return mimePDF
	case mimeJPEG, "image/jpg":
		return mimeJPEG
	case mimePNG:
		return mimePNG
	}
	return ""
}

func parseExtraction(content string) ([]entity.DocumentRecord, error) {
	var payload extractionPayload
	if err := json.Unmarshal([]byte(utils.RecoverJSON(content)), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	records := make([]entity.DocumentRecord, 0, len(payload.Documents))
	for _, d := range payload.Documents {
		record := entity.DocumentRecord{
			ID:          strings.TrimSpace(d.ID),
			Description: strings.TrimSpace(d.Description),
			Amount:      d.Amount,
			Items:       d.Items,
		}
		if t, err := time.Parse("2006-01-02", strings.TrimSpace(d.Date)); err == nil {
			record.Date = &t
		}
		records = append(records, record)
	}
	return records, nil
}

// RenderPDFPages renders the first maxPages pages of a PDF to JPEG with mupdf
func RenderPDFPages(data []byte, maxPages int) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if maxPages > 0 && pageCount > maxPages {
		pageCount = maxPages
	}

	pages := make([][]byte, 0, pageCount)
	for n := 0; n < pageCount; n++ {
		img, err := doc.Image(n)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", n+1, err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", n+1, err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}

var _ port.DocumentExtractor = (*DocumentExtractor)(nil)
