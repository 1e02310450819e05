package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/spherical/shopcard/internal/domain"
	"github.com/spherical/shopcard/internal/observability"
)

// Validator provides input validation for PDF files
type Validator struct {
	maxFileMB int64
	log       *observability.Logger
}

// NewValidator creates a validator that warns about files larger than maxFileMB
func NewValidator(maxFileMB int64, log *observability.Logger) *Validator {
	if log == nil {
		log = observability.Nop()
	}
	return &Validator{maxFileMB: maxFileMB, log: log}
}

// Structure is what structural validation learned about a PDF
type Structure struct {
	PageCount int
	// ImageBlocks holds the number of image XObjects per page, indexed from page 1
	ImageBlocks map[int]int
}

// ValidatePDFPath validates that a file path is valid and points to a PDF
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	if v.maxFileMB > 0 && info.Size() > v.maxFileMB*1024*1024 {
		v.log.Warn().
			Str("file", filepath.Base(path)).
			Int64("size_mb", info.Size()/(1024*1024)).
			Msg("PDF file is very large, processing may take a while")
	}

	file, err := os.Open(path)
	if err != nil {
		return domain.ValidationError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	file.Close()

	return nil
}

// ValidateQuality validates JPEG quality
func (v *Validator) ValidateQuality(quality int) error {
	if quality < 1 || quality > 100 {
		return domain.ValidationError(fmt.Sprintf("quality must be between 1 and 100, got %d", quality), nil)
	}
	return nil
}

// ValidateStructure parses the file with pdfcpu in relaxed mode. A file pdfcpu
// cannot read, or one without pages, is rejected as an input error.
func (v *Validator) ValidateStructure(path string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ValidationError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := readValidate(f, conf)
	if err != nil {
		return nil, domain.ValidationError("corrupt or unreadable PDF", err)
	}

	if ctx.PageCount == 0 {
		return nil, domain.ValidationError("PDF has no pages", nil)
	}

	st := &Structure{PageCount: ctx.PageCount, ImageBlocks: make(map[int]int, ctx.PageCount)}
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			st.ImageBlocks[pageNr] = len(pdfcpu.ImageObjNrs(ctx, pageNr))
		}
	}
	return st, nil
}

// readValidate guards against parser panics on badly damaged files.
func readValidate(f *os.File, conf *model.Configuration) (ctx *model.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	return api.ReadValidateAndOptimize(f, conf)
}
