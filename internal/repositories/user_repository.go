package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByID(id uint) (*models.User, error)
	GetUserByFirebaseUID(firebaseUID string) (*models.User, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser creates a new user in PostgreSQL
func (r *PostgresUserRepository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

// GetUserByID retrieves a user by ID from PostgreSQL
func (r *PostgresUserRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByFirebaseUID retrieves a user by Firebase UID from PostgreSQL
func (r *PostgresUserRepository) GetUserByFirebaseUID(firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

const userCacheTTL = time.Hour

// CachedUserRepository is a read-through cache over a UserRepository. Feed
// hydration reads user summaries far more often than profiles change, so
// lookups hit Redis first and fall back to the durable store on a miss; a
// cache failure only costs the fallback read.
type CachedUserRepository struct {
	users UserRepository
	redis *redis.Client
}

// NewCachedUserRepository creates a new CachedUserRepository
func NewCachedUserRepository(users UserRepository, rdb *redis.Client) *CachedUserRepository {
	return &CachedUserRepository{users: users, redis: rdb}
}

// GetUserByIDCached retrieves a user by ID, serving from Redis when possible.
func (r *CachedUserRepository) GetUserByIDCached(ctx context.Context, id uint) (*models.User, error) {
	key := fmt.Sprintf("user:%d", id)
	if raw, err := r.redis.Get(ctx, key).Bytes(); err == nil {
		var user models.User
		if err := json.Unmarshal(raw, &user); err == nil {
			return &user, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("user cache read failed for %d: %v", id, err)
	}

	user, err := r.users.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(user); err == nil {
		if err := r.redis.Set(ctx, key, raw, userCacheTTL).Err(); err != nil {
			log.Printf("user cache write failed for %d: %v", id, err)
		}
	}
	return user, nil
}
