package point

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/middleware"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/modules/restriction"
	"github.com/jgmap/core/internal/pkg/pagination"
	"github.com/jgmap/core/internal/pkg/response"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
	db  *gorm.DB
}

func NewHandler(svc *Service, db *gorm.DB) *Handler {
	return &Handler{svc: svc, db: db}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/points")

	g.GET("", h.list)
	g.GET("/mine", authMW, h.listMine)
	g.GET("/:id", h.get)
	g.POST("", authMW, h.create)
	g.PATCH("/:id", authMW, h.update)
	g.DELETE("/:id", authMW, h.withdraw)

	a := g.Group("", authMW, adminMW)
	a.GET("/admin", h.listAdmin)
	a.POST("/:id/promo", h.setPromo)
	a.DELETE("/:id/promo", h.clearPromo)
}

func (h *Handler) respondCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrOutOfBounds):
		response.UnprocessableEntity(c, "Współrzędne leżą poza obsługiwanym obszarem mapy.")
	case errors.Is(err, ErrCategoryNeeded):
		response.BadRequest(c, "Zgłoszenie wymaga wybrania kategorii.")
	case errors.Is(err, ErrDuplicate):
		response.Conflict(c, "W pobliżu istnieje już podobne zgłoszenie w tej kategorii.")
	case errors.Is(err, ErrDailyLimit):
		response.TooManyRequests(c, "Wykorzystałeś dzienny limit dodawania. Spróbuj jutro.")
	case errors.Is(err, restriction.ErrBanned):
		response.ForbiddenMsg(c, "Twoje konto jest zablokowane.")
	case errors.Is(err, restriction.ErrRestricted):
		response.ForbiddenMsg(c, "Nie możesz obecnie dodawać punktów tego typu.")
	default:
		response.InternalError(c, err)
	}
}

// GET /points?type=&category=
func (h *Handler) list(c *gin.Context) {
	filter := ListFilter{
		Type:     models.PointType(c.Query("type")),
		Category: c.Query("category"),
	}
	points, err := h.svc.ListPublished(c.Request.Context(), filter)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	isAdmin := middleware.IsAdmin(h.db, c)
	items := make([]pointResponse, len(points))
	for i := range points {
		items[i] = toResponse(&points[i], isAdmin)
	}
	response.OK(c, items)
}

// GET /points/:id
func (h *Handler) get(c *gin.Context) {
	isAdmin := middleware.IsAdmin(h.db, c)
	point, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), isAdmin)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(point, isAdmin))
}

// POST /points
func (h *Handler) create(c *gin.Context) {
	var dto CreatePointDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	point, err := h.svc.Create(c.Request.Context(), &dto, middleware.CurrentUserID(c), c.ClientIP())
	if err != nil {
		h.respondCreateError(c, err)
		return
	}
	response.Created(c, toResponse(point, false))
}

// PATCH /points/:id
func (h *Handler) update(c *gin.Context) {
	var dto UpdatePointDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	isAdmin := middleware.IsAdmin(h.db, c)
	point, err := h.svc.Update(c.Request.Context(), c.Param("id"), &dto, middleware.CurrentUserID(c), isAdmin)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(c)
	case errors.Is(err, ErrNotEditable):
		response.UnprocessableEntity(c, "Opublikowany punkt można zmieniać tylko przez propozycję edycji.")
	case errors.Is(err, ErrOutOfBounds):
		response.UnprocessableEntity(c, "Współrzędne leżą poza obsługiwanym obszarem mapy.")
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, toResponse(point, isAdmin))
	}
}

// DELETE /points/:id — author withdraws their own pending submission.
func (h *Handler) withdraw(c *gin.Context) {
	err := h.svc.SoftDelete(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c)
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(c)
	case errors.Is(err, ErrNotEditable):
		response.UnprocessableEntity(c, "Można wycofać tylko punkt czekający na moderację.")
	case err != nil:
		response.InternalError(c, err)
	default:
		response.NoContent(c)
	}
}

// GET /points/mine
func (h *Handler) listMine(c *gin.Context) {
	q := pagination.FromContext(c)
	points, pag, err := h.svc.ListMine(c.Request.Context(), q, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]pointResponse, len(points))
	for i := range points {
		items[i] = toResponse(&points[i], false)
		// Authors always see their own data in full.
		items[i].AuthorID = points[i].AuthorID
	}
	response.Paged(c, items, pag)
}

// GET /points/admin?status=&type=&reported=1&deletions=1
func (h *Handler) listAdmin(c *gin.Context) {
	q := pagination.FromContext(c)
	filter := AdminFilter{
		Status:        models.PointStatus(c.Query("status")),
		Type:          models.PointType(c.Query("type")),
		ReportedOnly:  c.Query("reported") == "1",
		DeletionsOnly: c.Query("deletions") == "1",
	}
	points, pag, err := h.svc.ListAdmin(c.Request.Context(), q, filter)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]pointResponse, len(points))
	for i := range points {
		items[i] = toResponse(&points[i], true)
	}
	response.Paged(c, items, pag)
}

// POST /points/:id/promo
func (h *Handler) setPromo(c *gin.Context) {
	var dto PromoDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	point, err := h.svc.SetPromo(c.Request.Context(), c.Param("id"), dto.Until, middleware.CurrentUserID(c))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(point, true))
}

// DELETE /points/:id/promo
func (h *Handler) clearPromo(c *gin.Context) {
	point, err := h.svc.ClearPromo(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c)
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(point, true))
}
