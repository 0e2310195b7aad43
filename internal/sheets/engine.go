// Package sheets is the sole mutator of ExcelFile state. Every document
// operation — creation, cell-level edits, duplication, deletion, export —
// funnels through here; handlers only translate HTTP to these calls.
package sheets

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/excel"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/models"

	"gorm.io/gorm"
)

// Actor is the resolved identity performing an operation.
type Actor struct {
	ID   uint
	Role models.UserRole
}

var (
	extPattern      = regexp.MustCompile(`(?i)\.(xlsx|xls)$`)
	unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

func cleanHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		if t := strings.TrimSpace(h); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func copyRows(rows []models.Row) []models.Row {
	out := make([]models.Row, len(rows))
	for i, r := range rows {
		cp := make(models.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// CreateFromTemplate instantiates a sheet from a named template. An
// unknown key falls back to the blank 3-column layout.
func CreateFromTemplate(db *gorm.DB, ownerID uint, templateKey, nameOverride string) (*models.ExcelFile, error) {
	name := strings.TrimSpace(nameOverride)
	if name == "" {
		name = "New Spreadsheet"
	}

	headers := append([]string(nil), templates["blank"].Headers...)
	if t, ok := templates[templateKey]; ok {
		headers = append([]string(nil), t.Headers...)
		if strings.TrimSpace(nameOverride) == "" {
			name = t.Name
		}
	}

	return create(db, ownerID, name, headers, nil)
}

// CreateFromHeaders instantiates a sheet from a caller-supplied header
// list. Blank entries are dropped; an empty result is rejected.
func CreateFromHeaders(db *gorm.DB, ownerID uint, name string, headers []string) (*models.ExcelFile, error) {
	cleaned := cleanHeaders(headers)
	if len(cleaned) == 0 {
		return nil, invalid("At least one header is required")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "New Spreadsheet"
	}

	return create(db, ownerID, name, cleaned, nil)
}

// CreateFromUpload decodes an uploaded workbook into a new sheet. The
// first row becomes the headers; every following row becomes a record
// keyed by header, with missing cells defaulting to "". All source cell
// values arrive stringified so downstream editing is uniform.
func CreateFromUpload(db *gorm.DB, ownerID uint, fileName string, data []byte) (*models.ExcelFile, error) {
	grid, err := excel.Decode(data)
	if err != nil {
		return nil, invalid(excel.ErrInvalidFile.Error())
	}
	if len(grid) == 0 {
		return nil, invalid("Excel file is empty")
	}

	headers := cleanHeaders(grid[0])
	if len(headers) == 0 {
		return nil, invalid("No valid headers found")
	}

	rows := make([]models.Row, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		row := make(models.Row, len(headers))
		for i, h := range headers {
			if i < len(raw) {
				row[h] = raw[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	name := extPattern.ReplaceAllString(fileName, "")

	return create(db, ownerID, name, headers, rows)
}

func create(db *gorm.DB, ownerID uint, name string, headers []string, rows []models.Row) (*models.ExcelFile, error) {
	if rows == nil {
		rows = []models.Row{}
	}
	file := models.ExcelFile{
		OwnerID: ownerID,
		Name:    name,
		Headers: headers,
		Rows:    rows,
	}
	if err := db.Create(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// findScoped loads a sheet the actor may read or edit: its owner, or any
// admin. A mismatch reports ErrNotFound, never a forbidden.
func findScoped(db *gorm.DB, id uint, actor Actor) (*models.ExcelFile, error) {
	q := db.Where("id = ?", id)
	if actor.Role != models.RoleAdmin {
		q = q.Where("owner_id = ?", actor.ID)
	}

	var file models.ExcelFile
	if err := q.First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

// findOwned loads a sheet only for its literal owner. Delete and
// duplicate go through here: admins get ErrNotFound like anyone else.
func findOwned(db *gorm.DB, id, ownerID uint) (*models.ExcelFile, error) {
	var file models.ExcelFile
	err := db.Where("id = ? AND owner_id = ?", id, ownerID).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

// Get returns the full sheet, rows included.
func Get(db *gorm.DB, id uint, actor Actor) (*models.ExcelFile, error) {
	return findScoped(db, id, actor)
}

// UpdatePatch is a partial update: nil fields are left untouched. Headers
// and rows are each replaced wholesale when present; no reconciliation
// between new headers and existing row keys is attempted — the editor is
// trusted to keep them consistent.
type UpdatePatch struct {
	Name    *string
	Headers []string
	Rows    []models.Row

	HeadersSet bool
	RowsSet    bool
}

func Update(db *gorm.DB, id uint, actor Actor, patch UpdatePatch) (*models.ExcelFile, error) {
	file, err := findScoped(db, id, actor)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		file.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.HeadersSet {
		file.Headers = cleanHeaders(patch.Headers)
	}
	if patch.RowsSet {
		rows := patch.Rows
		if rows == nil {
			rows = []models.Row{}
		}
		file.Rows = rows
	}

	if err := db.Save(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// RenameHeader replaces a label in place and moves every row value from
// the old key to the new one. Blank new labels and unknown old labels are
// silent no-ops, as is renaming a header to itself.
func RenameHeader(db *gorm.DB, id uint, actor Actor, oldLabel, newLabel string) (*models.ExcelFile, error) {
	file, err := findScoped(db, id, actor)
	if err != nil {
		return nil, err
	}

	newLabel = strings.TrimSpace(newLabel)
	if newLabel == "" || oldLabel == newLabel {
		return file, nil
	}

	pos := -1
	for i, h := range file.Headers {
		if h == oldLabel {
			pos = i
			break
		}
	}
	if pos == -1 {
		return file, nil
	}

	file.Headers[pos] = newLabel
	for _, row := range file.Rows {
		if v, ok := row[oldLabel]; ok {
			row[newLabel] = v
			delete(row, oldLabel)
		}
	}

	if err := db.Save(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// AddRow appends an all-empty row keyed by the current headers.
func AddRow(db *gorm.DB, id uint, actor Actor) (*models.ExcelFile, error) {
	file, err := findScoped(db, id, actor)
	if err != nil {
		return nil, err
	}

	row := make(models.Row, len(file.Headers))
	for _, h := range file.Headers {
		row[h] = ""
	}
	file.Rows = append(file.Rows, row)

	if err := db.Save(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// DeleteRow removes the row at index; an out-of-range index is a silent
// no-op.
func DeleteRow(db *gorm.DB, id uint, actor Actor, index int) (*models.ExcelFile, error) {
	file, err := findScoped(db, id, actor)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(file.Rows) {
		return file, nil
	}
	file.Rows = append(file.Rows[:index], file.Rows[index+1:]...)

	if err := db.Save(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// AddColumn appends an auto-named header and back-fills every row.
func AddColumn(db *gorm.DB, id uint, actor Actor) (*models.ExcelFile, error) {
	file, err := findScoped(db, id, actor)
	if err != nil {
		return nil, err
	}

	label := fmt.Sprintf("Column %d", len(file.Headers)+1)
	file.Headers = append(file.Headers, label)
	for _, row := range file.Rows {
		row[label] = ""
	}

	if err := db.Save(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// DeleteColumn removes a header and its key from every row. Removing the
// last remaining header is refused as a no-op.
func DeleteColumn(db *gorm.DB, id uint, actor Actor, label string) (*models.ExcelFile, error) {
	file, err := findScoped(db, id, actor)
	if err != nil {
		return nil, err
	}

	if len(file.Headers) <= 1 {
		return file, nil
	}

	pos := -1
	for i, h := range file.Headers {
		if h == label {
			pos = i
			break
		}
	}
	if pos == -1 {
		return file, nil
	}

	file.Headers = append(file.Headers[:pos], file.Headers[pos+1:]...)
	for _, row := range file.Rows {
		delete(row, label)
	}

	if err := db.Save(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// Duplicate creates an independent copy of the owner's sheet, named
// "<name> (Copy)" and owned by the same account. Only the literal owner
// may duplicate.
func Duplicate(db *gorm.DB, id, ownerID uint) (*models.ExcelFile, error) {
	original, err := findOwned(db, id, ownerID)
	if err != nil {
		return nil, err
	}

	return create(db, ownerID,
		original.Name+" (Copy)",
		append([]string(nil), original.Headers...),
		copyRows(original.Rows))
}

// Delete removes the owner's sheet. Only the literal owner may delete;
// an admin acting on someone else's sheet gets ErrNotFound.
func Delete(db *gorm.DB, id, ownerID uint) error {
	file, err := findOwned(db, id, ownerID)
	if err != nil {
		return err
	}
	return db.Delete(file).Error
}

// Export renders the sheet as an xlsx buffer: header row first, then one
// row per record in header order, absent values as "". Returns the
// sanitized download file name alongside the buffer.
func Export(db *gorm.DB, id uint, actor Actor) (string, []byte, error) {
	file, err := findScoped(db, id, actor)
	if err != nil {
		return "", nil, err
	}

	grid := make([][]string, 0, len(file.Rows)+1)
	grid = append(grid, append([]string(nil), file.Headers...))
	for _, row := range file.Rows {
		line := make([]string, len(file.Headers))
		for i, h := range file.Headers {
			line[i] = row[h]
		}
		grid = append(grid, line)
	}

	data, err := excel.Encode(grid)
	if err != nil {
		return "", nil, err
	}

	name := unsafeFileChars.ReplaceAllString(file.Name+".xlsx", "_")
	return name, data, nil
}
