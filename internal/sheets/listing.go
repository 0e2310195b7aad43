package sheets

import (
	"time"

	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/models"

	"gorm.io/gorm"
)

// OwnerInfo identifies the account behind a listed sheet.
type OwnerInfo struct {
	ID    uint            `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

// Summary is the listing shape: everything about a sheet except its rows.
type Summary struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	Headers   []string   `json:"headers"`
	RowCount  int        `json:"rowCount"`
	Owner     *OwnerInfo `json:"owner,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func summarize(f *models.ExcelFile) Summary {
	return Summary{
		ID:        f.ID,
		Name:      f.Name,
		Headers:   append([]string(nil), f.Headers...),
		RowCount:  len(f.Rows),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ListOwned returns summaries of the account's own sheets, most recently
// updated first.
func ListOwned(db *gorm.DB, ownerID uint) ([]Summary, error) {
	var files []models.ExcelFile
	err := db.Where("owner_id = ?", ownerID).
		Order("updated_at desc").
		Find(&files).Error
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(files))
	for i := range files {
		out = append(out, summarize(&files[i]))
	}
	return out, nil
}

// ListAllWithOwners returns every sheet in the system with its owner
// resolved. A dangling owner reference leaves Owner nil rather than
// failing the listing.
func ListAllWithOwners(db *gorm.DB) ([]Summary, error) {
	var files []models.ExcelFile
	if err := db.Order("updated_at desc").Find(&files).Error; err != nil {
		return nil, err
	}

	ownerIDs := make([]uint, 0, len(files))
	seen := map[uint]bool{}
	for i := range files {
		if !seen[files[i].OwnerID] {
			seen[files[i].OwnerID] = true
			ownerIDs = append(ownerIDs, files[i].OwnerID)
		}
	}

	owners := map[uint]*OwnerInfo{}
	if len(ownerIDs) > 0 {
		var users []models.User
		if err := db.Where("id IN ?", ownerIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for i := range users {
			u := &users[i]
			owners[u.ID] = &OwnerInfo{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
		}
	}

	out := make([]Summary, 0, len(files))
	for i := range files {
		s := summarize(&files[i])
		s.Owner = owners[files[i].OwnerID]
		out = append(out, s)
	}
	return out, nil
}

// CountByOwner returns the number of sheets each account owns. Accounts
// owning nothing are simply absent from the map.
func CountByOwner(db *gorm.DB) (map[uint]int64, error) {
	type ownerCount struct {
		OwnerID uint
		Total   int64
	}

	var counts []ownerCount
	err := db.Model(&models.ExcelFile{}).
		Select("owner_id, count(*) as total").
		Group("owner_id").
		Find(&counts).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint]int64, len(counts))
	for _, c := range counts {
		out[c.OwnerID] = c.Total
	}
	return out, nil
}
