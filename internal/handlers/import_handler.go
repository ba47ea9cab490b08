package handlers

import (
	"bytes"
	"errors"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"gifty/backend/internal/services"
)

var (
	csvMIMETypes   = []string{"text/csv", "application/csv", "text/plain", "application/vnd.ms-excel"}
	vcardMIMETypes = []string{"text/vcard", "text/x-vcard", "text/directory"}
)

// ImportHandler はファイルのアップロードによる一括登録を扱います。
type ImportHandler struct {
	importService *services.ImportService
	archive       *services.UploadArchive
}

// NewImportHandler は新しいImportHandlerを作成します。
func NewImportHandler(importService *services.ImportService, archive *services.UploadArchive) *ImportHandler {
	return &ImportHandler{importService: importService, archive: archive}
}

// UploadCSVHandler は CSV ファイル (フォーム項目 file) を取り込みます。
func (h *ImportHandler) UploadCSVHandler(c *gin.Context) {
	data, ok := h.receive(c, csvMIMETypes, ".csv", "Only CSV files allowed")
	if !ok {
		return
	}
	result := h.importService.ImportCSV(c.Request.Context(), bytes.NewReader(data))
	result.Message = "CSV imported successfully"
	c.JSON(http.StatusOK, result)
}

// UploadVCardHandler は vCard ファイル (フォーム項目 file) を取り込みます。
func (h *ImportHandler) UploadVCardHandler(c *gin.Context) {
	data, ok := h.receive(c, vcardMIMETypes, ".vcf", "Only vCard files allowed")
	if !ok {
		return
	}
	result := h.importService.ImportVCard(c.Request.Context(), bytes.NewReader(data))
	result.Message = "vCard imported successfully"
	c.JSON(http.StatusOK, result)
}

// receive はアップロードされたファイルを検証して読み込み、保存先が設定されていれば保存します。
func (h *ImportHandler) receive(c *gin.Context, allowed []string, ext, rejectMessage string) ([]byte, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, false
	}
	if !acceptFile(header, allowed, ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": rejectMessage})
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		log.Printf("Failed to open uploaded file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		log.Printf("Failed to read uploaded file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return nil, false
	}

	if _, err := h.archive.Save(header.Filename, bytes.NewReader(data)); err != nil {
		log.Printf("Failed to archive uploaded file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file"})
		return nil, false
	}
	return data, true
}

// acceptFile は MIME タイプまたは拡張子で受け付けるファイルかを判定します。
func acceptFile(header *multipart.FileHeader, allowed []string, ext string) bool {
	if strings.EqualFold(filepath.Ext(header.Filename), ext) {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return slices.Contains(allowed, mediaType)
}
