package point

import (
	"time"

	"github.com/jgmap/core/internal/models"
)

type CreatePointDTO struct {
	Title    string           `json:"title"    binding:"required"`
	Content  string           `json:"content"`
	Type     models.PointType `json:"type"     binding:"required"`
	Category string           `json:"category"`
	Lat      float64          `json:"lat"      binding:"required"`
	Lng      float64          `json:"lng"      binding:"required"`
	Address  string           `json:"address"`
	Website  string           `json:"website"`
	Phone    string           `json:"phone"`
	CTAText  string           `json:"cta_text"`
	CTAURL   string           `json:"cta_url"`
	Images   []models.Image   `json:"images"`
}

// UpdatePointDTO carries a partial update; nil fields stay untouched.
type UpdatePointDTO struct {
	Title    *string           `json:"title"`
	Content  *string           `json:"content"`
	Type     *models.PointType `json:"type"`
	Category *string           `json:"category"`
	Lat      *float64          `json:"lat"`
	Lng      *float64          `json:"lng"`
	Address  *string           `json:"address"`
	Website  *string           `json:"website"`
	Phone    *string           `json:"phone"`
	CTAText  *string           `json:"cta_text"`
	CTAURL   *string           `json:"cta_url"`
	Images   *[]models.Image   `json:"images"`
}

type PromoDTO struct {
	Until *time.Time `json:"until"`
}

// ListFilter narrows the public map payload.
type ListFilter struct {
	Type     models.PointType
	Category string
}

type pointResponse struct {
	ID            string              `json:"id"`
	Title         string              `json:"title"`
	Content       string              `json:"content,omitempty"`
	Excerpt       string              `json:"excerpt,omitempty"`
	Lat           float64             `json:"lat"`
	Lng           float64             `json:"lng"`
	Type          models.PointType    `json:"type"`
	Category      string              `json:"category,omitempty"`
	Address       string              `json:"address,omitempty"`
	Website       string              `json:"website,omitempty"`
	Phone         string              `json:"phone,omitempty"`
	CTAText       string              `json:"cta_text,omitempty"`
	CTAURL        string              `json:"cta_url,omitempty"`
	Images        []models.Image      `json:"images"`
	Status        models.PointStatus  `json:"status"`
	ReportStatus  models.ReportStatus `json:"report_status,omitempty"`
	IsPromo       bool                `json:"is_promo"`
	PromoUntil    *time.Time          `json:"promo_until,omitempty"`
	AuthorID      string              `json:"author_id,omitempty"`
	DeletionAsked bool                `json:"deletion_requested,omitempty"`
	AdminNote     string              `json:"admin_note,omitempty"`
	IPAddress     string              `json:"ip_address,omitempty"`
	Created       time.Time           `json:"created"`
	Modified      time.Time           `json:"modified"`
}

func toResponse(p *models.PointModel, isAdmin bool) pointResponse {
	out := pointResponse{
		ID:            p.ID,
		Title:         p.Title,
		Content:       p.Content,
		Excerpt:       p.Excerpt,
		Lat:           p.Lat,
		Lng:           p.Lng,
		Type:          p.Type,
		Category:      p.Category,
		Address:       p.Address,
		Website:       p.Website,
		Phone:         p.Phone,
		CTAText:       p.CTAText,
		CTAURL:        p.CTAURL,
		Images:        p.Images,
		Status:        p.Status,
		IsPromo:       p.IsPromo,
		PromoUntil:    p.PromoUntil,
		DeletionAsked: p.IsDeletionRequested,
		Created:       p.CreatedAt,
		Modified:      p.UpdatedAt,
	}
	if out.Images == nil {
		out.Images = []models.Image{}
	}
	if !p.AuthorHidden || isAdmin {
		out.AuthorID = p.AuthorID
	}
	if isAdmin {
		out.ReportStatus = p.ReportStatus
		out.AdminNote = p.AdminNote
		out.IPAddress = p.IPAddress
	}
	return out
}
