package validation

import (
	"bytes"
	"fmt"
	"strings"

	"resumelens/internal/errors"
	"resumelens/internal/utils"

	"github.com/ledongthuc/pdf"
)

const (
	MsgNoFile      = "Please select a PDF file first"
	MsgNotPDF      = "Please upload a PDF file"
	MsgFileTooBig  = "File too large"
	pdfContentType = "application/pdf"
)

// CheckFileSize rejects uploads over limit bytes
func CheckFileSize(size, limit int64) error {
	if limit > 0 && size > limit {
		return errors.NewValidationError(errors.ErrCodeFileTooLarge, MsgFileTooBig, nil).
			WithContext("size", utils.FormatFileSize(size)).
			WithContext("limit", utils.FormatFileSize(limit))
	}
	return nil
}

// CheckPDFUpload verifies an upload is a readable PDF and returns its page count
func CheckPDFUpload(filename, contentType string, data []byte) (int, error) {
	if filename == "" && len(data) == 0 {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidRequest, MsgNoFile, nil)
	}

	mediaType, _, _ := strings.Cut(contentType, ";")
	if !strings.EqualFold(strings.TrimSpace(mediaType), pdfContentType) &&
		!utils.IsPDFFile(filename) {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidFormat, MsgNotPDF, nil).
			WithContext("filename", filename).
			WithContext("content_type", contentType)
	}

	pages, err := countPages(data)
	if err != nil {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidPDF, MsgNotPDF, err).
			WithContext("filename", filename)
	}
	return pages, nil
}

// countPages opens data with the PDF reader. The reader panics on some truncated files.
func countPages(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	pages = reader.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("PDF has no pages")
	}
	return pages, nil
}
