package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/database"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/middleware"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/models"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/sheets"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func actorFrom(c *gin.Context) sheets.Actor {
	user, _ := middleware.CurrentUser(c)
	return sheets.Actor{ID: user.ID, Role: user.Role}
}

func fileID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file ID"})
		return 0, false
	}
	return uint(id), true
}

func fileSummaryJSON(f *models.ExcelFile) gin.H {
	return gin.H{
		"id":        f.ID,
		"name":      f.Name,
		"headers":   []string(f.Headers),
		"rowCount":  len(f.Rows),
		"createdAt": f.CreatedAt,
		"updatedAt": f.UpdatedAt,
	}
}

func fileFullJSON(f *models.ExcelFile) gin.H {
	return gin.H{
		"id":        f.ID,
		"name":      f.Name,
		"headers":   []string(f.Headers),
		"rows":      []models.Row(f.Rows),
		"createdAt": f.CreatedAt,
		"updatedAt": f.UpdatedAt,
	}
}

func writeSheetError(c *gin.Context, err error, fallback string) {
	var ve *sheets.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"message": ve.Message})
	case errors.Is(err, sheets.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "File not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": fallback})
	}
}

type createSheetRequest struct {
	Template string    `json:"template"`
	Name     string    `json:"name"`
	Headers  *[]string `json:"headers"`
}

// CreateSheet builds a new sheet from a named template, from an explicit
// header list, or as a blank default when neither is given.
func CreateSheet(c *gin.Context) {
	var req createSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	actor := actorFrom(c)

	var (
		file *models.ExcelFile
		err  error
	)
	switch {
	case req.Template != "" && sheets.HasTemplate(req.Template):
		file, err = sheets.CreateFromTemplate(database.DB, actor.ID, req.Template, req.Name)
	case req.Headers != nil:
		file, err = sheets.CreateFromHeaders(database.DB, actor.ID, req.Name, *req.Headers)
	default:
		file, err = sheets.CreateFromTemplate(database.DB, actor.ID, req.Template, req.Name)
	}
	if err != nil {
		writeSheetError(c, err, "Failed to create file")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File created successfully",
		"file":    fileSummaryJSON(file),
	})
}

// UploadSheet imports an uploaded .xlsx/.xls workbook as a new sheet.
func UploadSheet(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file provided"})
		return
	}

	name := header.Filename
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".xlsx") && !strings.HasSuffix(lower, ".xls") {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Only .xlsx and .xls files are allowed"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to upload file"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to upload file"})
		return
	}

	actor := actorFrom(c)
	file, err := sheets.CreateFromUpload(database.DB, actor.ID, name, data)
	if err != nil {
		writeSheetError(c, err, "Failed to upload file")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"file":    fileSummaryJSON(file),
	})
}

// ListSheets returns the caller's own sheets as summaries, rows omitted.
func ListSheets(c *gin.Context) {
	actor := actorFrom(c)
	files, err := sheets.ListOwned(database.DB, actor.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list files"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// ListAllSheets is the admin listing: every sheet with its owner resolved.
func ListAllSheets(c *gin.Context) {
	files, err := sheets.ListAllWithOwners(database.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to list files"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func GetSheet(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	file, err := sheets.Get(database.DB, id, actorFrom(c))
	if err != nil {
		writeSheetError(c, err, "Failed to get file")
		return
	}

	c.JSON(http.StatusOK, gin.H{"file": fileFullJSON(file)})
}

type updateSheetRequest struct {
	Name    *string         `json:"name"`
	Headers json.RawMessage `json:"headers"`
	Rows    json.RawMessage `json:"rows"`
}

// UpdateSheet applies a partial update of name, headers and rows. Headers
// and rows are replaced wholesale; the editor is responsible for keeping
// row keys consistent with the headers it sends.
func UpdateSheet(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	var req updateSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	patch := sheets.UpdatePatch{Name: req.Name}

	if req.Headers != nil {
		var headers []string
		if err := json.Unmarshal(req.Headers, &headers); err != nil || string(req.Headers) == "null" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Headers must be an array"})
			return
		}
		patch.Headers = headers
		patch.HeadersSet = true
	}

	if req.Rows != nil {
		var rows []models.Row
		if err := json.Unmarshal(req.Rows, &rows); err != nil || string(req.Rows) == "null" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Rows must be an array"})
			return
		}
		patch.Rows = rows
		patch.RowsSet = true
	}

	file, err := sheets.Update(database.DB, id, actorFrom(c), patch)
	if err != nil {
		writeSheetError(c, err, "Failed to update file")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File updated successfully",
		"file":    fileFullJSON(file),
	})
}

// DeleteSheet removes a sheet. Scope is the literal owner: an admin
// deleting another account's sheet gets the same 404 as a stranger.
func DeleteSheet(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	actor := actorFrom(c)
	if err := sheets.Delete(database.DB, id, actor.ID); err != nil {
		writeSheetError(c, err, "Failed to delete file")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

// DuplicateSheet deep-copies one of the caller's own sheets.
func DuplicateSheet(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	actor := actorFrom(c)
	file, err := sheets.Duplicate(database.DB, id, actor.ID)
	if err != nil {
		writeSheetError(c, err, "Failed to duplicate file")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File duplicated successfully",
		"file":    fileSummaryJSON(file),
	})
}

// DownloadSheet streams the sheet as an xlsx attachment.
func DownloadSheet(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	name, data, err := sheets.Export(database.DB, id, actorFrom(c))
	if err != nil {
		writeSheetError(c, err, "Failed to download file")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

type renameHeaderRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

func RenameSheetHeader(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	var req renameHeaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	file, err := sheets.RenameHeader(database.DB, id, actorFrom(c), req.Old, req.New)
	if err != nil {
		writeSheetError(c, err, "Failed to update file")
		return
	}

	c.JSON(http.StatusOK, gin.H{"file": fileFullJSON(file)})
}

func AddSheetRow(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	file, err := sheets.AddRow(database.DB, id, actorFrom(c))
	if err != nil {
		writeSheetError(c, err, "Failed to update file")
		return
	}

	c.JSON(http.StatusOK, gin.H{"file": fileFullJSON(file)})
}

func DeleteSheetRow(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid row index"})
		return
	}

	file, err := sheets.DeleteRow(database.DB, id, actorFrom(c), index)
	if err != nil {
		writeSheetError(c, err, "Failed to update file")
		return
	}

	c.JSON(http.StatusOK, gin.H{"file": fileFullJSON(file)})
}

func AddSheetColumn(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	file, err := sheets.AddColumn(database.DB, id, actorFrom(c))
	if err != nil {
		writeSheetError(c, err, "Failed to update file")
		return
	}

	c.JSON(http.StatusOK, gin.H{"file": fileFullJSON(file)})
}

type deleteColumnRequest struct {
	Label string `json:"label"`
}

func DeleteSheetColumn(c *gin.Context) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	var req deleteColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	file, err := sheets.DeleteColumn(database.DB, id, actorFrom(c), req.Label)
	if err != nil {
		writeSheetError(c, err, "Failed to update file")
		return
	}

	c.JSON(http.StatusOK, gin.H{"file": fileFullJSON(file)})
}
