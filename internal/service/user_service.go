package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"Uni_Connect/internal/model"
	"Uni_Connect/internal/pkg"
	"Uni_Connect/internal/repository/mysql"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenStore 每个用户当前有效的 access token
type TokenStore interface {
	AddUserToken(ctx context.Context, userID uint64, token string) error
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
	DeleteUserToken(ctx context.Context, userID uint64) error
}

type UserService struct {
	repo     *mysql.UserRepository
	tokens   TokenStore
	emailSvc *EmailService
	jwt      *pkg.JWTManager
	log      *zap.Logger
}

func NewUserService(db *gorm.DB, tokens TokenStore, emailSvc *EmailService, jwt *pkg.JWTManager, log *zap.Logger) *UserService {
	return &UserService{
		repo:     &mysql.UserRepository{DB: db},
		tokens:   tokens,
		emailSvc: emailSvc,
		jwt:      jwt,
		log:      log,
	}
}

// ProfilePatch 为 nil 的字段保持不变
type ProfilePatch struct {
	FullName   *string `json:"full_name"`
	AvatarURL  *string `json:"avatar_url"`
	University *string `json:"university"`
	Bio        *string `json:"bio"`
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validPassword(pw string) error {
	if n := utf8.RuneCountInString(pw); n < 6 || n > 64 {
		return validation("password must be 6-64 characters")
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, username, password, email, code string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 32 {
		return nil, validation("username must be 3-32 characters")
	}
	if err := validPassword(password); err != nil {
		return nil, err
	}
	if !validEmail(email) {
		return nil, validation("invalid email")
	}

	// 验证code是否正确
	ok, err := s.emailSvc.VerifyCode(ctx, ScopeRegister, email, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, validation("verification failed")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: username,
		Password: string(hash),
		Email:    email,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if mysql.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: username or email already registered", ErrConflict)
		}
		return nil, storeErr(err, "create user")
	}
	return user, nil
}

// Login 支持用户名或邮箱；token 写入 redis，同一账号后登录会顶掉前一个
func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}
	if err != nil {
		return nil, storeErr(err, "load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	}
	return s.issue(ctx, user.ID)
}

func (s *UserService) issue(ctx context.Context, userID uint64) (*pkg.Pair, error) {
	pair, err := s.jwt.GeneratePair(userID)
	if err != nil {
		return nil, err
	}
	if err = s.tokens.AddUserToken(ctx, userID, pair.AccessToken); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return pair, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	if err := s.tokens.DeleteUserToken(ctx, userID); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Refresh 换发的 access token 同样写入 redis，否则鉴权中间件会拒绝
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	pair, claims, err := s.jwt.Refresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if err = s.tokens.AddUserToken(ctx, claims.UserID, pair.AccessToken); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return pair, nil
}

func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := validPassword(newPassword); err != nil {
		return err
	}
	ok, err := s.emailSvc.VerifyCode(ctx, ScopeReset, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return validation("verification failed")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return storeErr(err, "load user")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, user, string(hash)); err != nil {
		return storeErr(err, "update password")
	}
	// 旧会话失效
	return s.Logout(ctx, user.ID)
}

// ChangePassword 登录态修改密码，成功后需重新登录
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	if err := validPassword(newPassword); err != nil {
		return err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return storeErr(err, "load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return validation("old password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, user, string(hash)); err != nil {
		return storeErr(err, "update password")
	}
	return s.Logout(ctx, userID)
}

// Me 当前用户的完整资料
func (s *UserService) Me(ctx context.Context, userID uint64) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("user %d", userID))
	}
	return u, nil
}

func (s *UserService) Profile(ctx context.Context, userID uint64) (model.Profile, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	return u.Profile(), nil
}

// Profiles 按传入顺序返回，不存在的 id 被跳过
func (s *UserService) Profiles(ctx context.Context, ids []uint64) ([]model.Profile, error) {
	ids = uniqueIDs(ids)
	m, err := loadProfiles(ctx, s.repo, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.Profile, 0, len(m))
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, patch ProfilePatch) (*model.User, error) {
	fields := map[string]any{}
	if patch.FullName != nil {
		if utf8.RuneCountInString(*patch.FullName) > 64 {
			return nil, validation("full name too long")
		}
		fields["full_name"] = strings.TrimSpace(*patch.FullName)
	}
	if patch.AvatarURL != nil {
		fields["avatar_url"] = *patch.AvatarURL
	}
	if patch.University != nil {
		fields["university"] = strings.TrimSpace(*patch.University)
	}
	if patch.Bio != nil {
		fields["bio"] = *patch.Bio
	}
	if len(fields) > 0 {
		if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
			return nil, storeErr(err, "update profile")
		}
	}
	return s.Me(ctx, userID)
}

// Search 按用户名或学校搜索，不含自己
func (s *UserService) Search(ctx context.Context, userID uint64, term string, limit int) ([]model.Profile, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []model.Profile{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	users, err := s.repo.Search(ctx, term, userID, limit)
	if err != nil {
		return nil, storeErr(err, "search users")
	}
	return toProfiles(users), nil
}

func toProfiles(users []model.User) []model.Profile {
	out := make([]model.Profile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Profile())
	}
	return out
}

// loadProfiles 批量取资料，按 id 索引
func loadProfiles(ctx context.Context, repo *mysql.UserRepository, ids []uint64) (map[uint64]model.Profile, error) {
	out := make(map[uint64]model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "load profiles")
	}
	for i := range users {
		out[users[i].ID] = users[i].Profile()
	}
	return out, nil
}
