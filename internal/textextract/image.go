package textextract

import (
	"context"

	"github.com/joseph-ayodele/docufield/constants"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	text, warns, err := e.tesseractOCR(ctx, path)
	if err != nil {
		e.logger.Error("textextract.image.failed", "path", path, "error", err)
		return Result{SourceType: constants.IMAGE, Warnings: warns}, err
	}
	return Result{Text: text, Pages: 1, SourceType: constants.IMAGE, Method: "image-ocr", Warnings: warns}, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, imgPath string) (string, []string, error) {
	// tesseract <img> stdout -l eng
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, imgPath, "stdout", "-l", e.cfg.TesseractLang)
	if err != nil {
		return "", []string{string(errb)}, err
	}
	var warns []string
	if len(errb) > 0 {
		warns = append(warns, truncate(string(errb), 1<<10))
	}
	return string(out), warns, nil
}
