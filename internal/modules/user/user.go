package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/middleware"
	"github.com/jgmap/core/internal/models"
	jwtpkg "github.com/jgmap/core/internal/pkg/jwt"
	"github.com/jgmap/core/internal/pkg/pagination"
	"github.com/jgmap/core/internal/pkg/response"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 30 * 24 * time.Hour

var (
	ErrBadCredentials = errors.New("wrong username or password")
	ErrUsernameTaken  = errors.New("username already taken")
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
	Mail     string `json:"mail"`
}

type UpdateProfileDTO struct {
	Name *string `json:"name"`
	Mail *string `json:"mail"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type userResponse struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	Name          string          `json:"name"`
	Mail          string          `json:"mail,omitempty"`
	Role          models.UserRole `json:"role"`
	Banned        bool            `json:"banned,omitempty"`
	BanUntil      *time.Time      `json:"ban_until,omitempty"`
	BanReason     string          `json:"ban_reason,omitempty"`
	LastLoginTime *time.Time      `json:"last_login_time,omitempty"`
}

func toResponse(u *models.UserModel) *userResponse {
	return &userResponse{
		ID:            u.ID,
		Username:      u.Username,
		Name:          u.Name,
		Mail:          u.Mail,
		Role:          u.Role,
		Banned:        u.Banned,
		BanUntil:      u.BanUntil,
		BanReason:     u.BanReason,
		LastLoginTime: u.LastLoginTime,
	}
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) GetByID(ctx context.Context, id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Login verifies credentials and returns a signed token. A banned user can
// still log in; the restriction checks gate what they can do afterwards.
func (s *Service) Login(ctx context.Context, username, password, ip string) (string, *models.UserModel, error) {
	var u models.UserModel
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrBadCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, ErrBadCredentials
	}

	now := time.Now()
	s.db.WithContext(ctx).Model(&u).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	})
	u.LastLoginTime = &now
	u.LastLoginIP = ip

	token, err := jwtpkg.Sign(u.ID, tokenTTL)
	return token, &u, err
}

// Register creates a regular contributor account.
func (s *Service) Register(ctx context.Context, dto *RegisterDTO) (*models.UserModel, error) {
	username := strings.TrimSpace(dto.Username)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		name = username
	}
	u := models.UserModel{
		Username: username,
		Password: string(hash),
		Name:     name,
		Mail:     strings.TrimSpace(dto.Mail),
		Role:     models.RoleUser,
	}
	return &u, s.db.WithContext(ctx).Create(&u).Error
}

func (s *Service) UpdateProfile(ctx context.Context, id string, dto *UpdateProfileDTO) (*models.UserModel, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil || u == nil {
		return u, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.Mail != nil {
		updates["mail"] = strings.TrimSpace(*dto.Mail)
	}
	if len(updates) == 0 {
		return u, nil
	}
	if err := s.db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, id string, dto *ChangePasswordDTO) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return gorm.ErrRecordNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(dto.OldPassword)); err != nil {
		return ErrBadCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(u).Update("password", string(hash)).Error
}

// List returns all accounts for the admin panel.
func (s *Service) List(ctx context.Context, q pagination.Query, search string) ([]models.UserModel, response.Pagination, error) {
	tx := s.db.WithContext(ctx).Model(&models.UserModel{}).Order("created_at ASC")
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		tx = tx.Where("username LIKE ? OR name LIKE ? OR mail LIKE ?", like, like, like)
	}
	var users []models.UserModel
	pag, err := pagination.Paginate(tx, q, &users)
	return users, pag, err
}

// SeedAdmin creates the initial admin account when no admin exists yet.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u := models.UserModel{
		Username: username,
		Password: string(hash),
		Name:     username,
		Role:     models.RoleAdmin,
	}
	return s.db.WithContext(ctx).Create(&u).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	auth := rg.Group("/auth")
	auth.POST("/login", h.login)
	auth.POST("/register", h.register)

	me := rg.Group("/user", authMW)
	me.GET("/me", h.me)
	me.PATCH("/me", h.updateProfile)
	me.PUT("/me/password", h.changePassword)

	a := rg.Group("/admin/users", authMW, adminMW)
	a.GET("", h.list)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(c.Request.Context(), dto.Username, dto.Password, c.ClientIP())
	if errors.Is(err, ErrBadCredentials) {
		response.Unauthorized(c)
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"token": token, "user": toResponse(u)})
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(c.Request.Context(), &dto)
	if errors.Is(err, ErrUsernameTaken) {
		response.Conflict(c, "Ta nazwa użytkownika jest już zajęta.")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, toResponse(u))
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.GetByID(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.svc.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if errors.Is(err, ErrBadCredentials) {
		response.ForbiddenMsg(c, "Obecne hasło jest nieprawidłowe.")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	users, pag, err := h.svc.List(c.Request.Context(), q, c.Query("search"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]*userResponse, len(users))
	for i := range users {
		items[i] = toResponse(&users[i])
	}
	response.Paged(c, items, pag)
}
