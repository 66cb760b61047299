package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"monopolyx-service/internal/config"
	"monopolyx-service/internal/model"
	pkgAuth "monopolyx-service/pkg/auth"
	appErr "monopolyx-service/pkg/errors"
	"monopolyx-service/pkg/logger"
	"monopolyx-service/pkg/utils/random"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service implements code-based login: a short-lived one-time code per
// handle in redis, exchanged for a JWT. Unknown handles become new users
// on first successful login.
type Service struct {
	db      *gorm.DB
	rdb     *redis.Client
	codeTTL time.Duration
}

type LoginResult struct {
	Token    string     `json:"token"`
	ExpireAt time.Time  `json:"expireAt"`
	User     model.User `json:"user"`
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		db:      db,
		rdb:     rdb,
		codeTTL: 5 * time.Minute,
	}
}

const testLoginCode = "123456"

// SendCode issues a login code for the handle. Debug mode uses a fixed
// code so clients don't need a delivery channel during development.
func (s *Service) SendCode(ctx context.Context, handle string) error {
	handle, err := normalizeHandle(handle)
	if err != nil {
		return err
	}

	code := testLoginCode
	if !strings.EqualFold(config.GlobalConfig.Server.Mode, "debug") {
		code = random.Numeric(6)
	}

	if err := s.rdb.Set(ctx, buildCodeKey(handle), code, s.codeTTL).Err(); err != nil {
		return err
	}
	logger.Log.Info("login code generated",
		zap.String("handle", handle),
		zap.Bool("testCode", strings.EqualFold(config.GlobalConfig.Server.Mode, "debug")),
	)
	return nil
}

// Login exchanges a valid code for a token, creating the user when the
// handle is new.
func (s *Service) Login(ctx context.Context, handle, code string) (*LoginResult, error) {
	handle, err := normalizeHandle(handle)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, appErr.ErrInvalidLoginCode
	}

	key := buildCodeKey(handle)
	stored, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, appErr.ErrLoginCodeExpired
		}
		return nil, err
	}
	if stored != code {
		return nil, appErr.ErrInvalidLoginCode
	}
	s.rdb.Del(ctx, key)

	var user model.User
	err = s.db.WithContext(ctx).Where("handle = ?", handle).First(&user).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		user, err = s.createUser(ctx, handle)
		if err != nil {
			return nil, err
		}
	}
	if strings.EqualFold(user.Status, "banned") {
		return nil, appErr.ErrUserBanned
	}

	token, err := pkgAuth.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)
	return &LoginResult{
		Token:    token,
		ExpireAt: expireAt,
		User:     user,
	}, nil
}

func (s *Service) createUser(ctx context.Context, handle string) (model.User, error) {
	user := model.User{
		Handle:   handle,
		Nickname: strings.TrimPrefix(handle, "@"),
		Status:   "normal",
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return model.User{}, err
	}
	logger.Log.Info("user created", zap.Int64("userID", user.ID), zap.String("handle", handle))
	return user, nil
}

func normalizeHandle(handle string) (string, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	if len(handle) < 4 || len(handle) > 33 {
		return "", appErr.ErrInvalidHandle
	}
	for _, r := range handle[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return "", appErr.ErrInvalidHandle
		}
	}
	return handle, nil
}

func buildCodeKey(handle string) string {
	return fmt.Sprintf("mpx:login:code:%s", handle)
}
