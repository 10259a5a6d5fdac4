package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-api/internal/core/domain"
)

const (
	collectionUsers    = "users"
	collectionCounters = "counters"
	userSequence       = "users"

	indexUsernameUnique = "username_unique"
	indexEmailUnique    = "email_unique"
)

// UserRepository stores users as documents. Numeric IDs come from a counter
// document so they match the relational backend.
type UserRepository struct {
	db       *mongo.Database
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		db:       db,
		col:      db.Collection(collectionUsers),
		counters: db.Collection(collectionCounters),
	}
}

type userDocument struct {
	ID             uint   `bson:"_id"`
	Username       string `bson:"username"`
	Email          string `bson:"email"`
	FullName       string `bson:"full_name"`
	HashedPassword string `bson:"hashed_password"`
	IsActive       bool   `bson:"is_active"`
	IsSuperuser    bool   `bson:"is_superuser"`
	CreatedAt      int64  `bson:"created_at"`
	UpdatedAt      int64  `bson:"updated_at"`
}

func (d *userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		FullName:     d.FullName,
		PasswordHash: d.HashedPassword,
		Disabled:     !d.IsActive,
		IsSuperuser:  d.IsSuperuser,
		CreatedAt:    unixToTime(d.CreatedAt),
		UpdatedAt:    unixToTime(d.UpdatedAt),
	}
}

// Create allocates the next ID and inserts user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	doc := userDocument{
		ID:             id,
		Username:       user.Username,
		Email:          user.Email,
		FullName:       user.FullName,
		HashedPassword: user.PasswordHash,
		IsActive:       !user.Disabled,
		IsSuperuser:    user.IsSuperuser,
		CreatedAt:      user.CreatedAt.Unix(),
		UpdatedAt:      user.UpdatedAt.Unix(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateCause(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) nextID(ctx context.Context) (uint, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": userSequence},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocate user id: %w", err)
	}
	return uint(counter.Seq), nil
}

// duplicateCause picks the violated unique index by name from the server
// message. Only the part before "dup key:" is inspected since the rest echoes
// user input.
func duplicateCause(err error) error {
	head, _, _ := strings.Cut(err.Error(), "dup key:")
	if strings.Contains(head, "index: "+indexEmailUnique) {
		return domain.ErrDuplicateEmail
	}
	return domain.ErrDuplicateUsername
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *UserRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{
		"email":           user.Email,
		"full_name":       user.FullName,
		"hashed_password": user.PasswordHash,
		"is_active":       !user.Disabled,
		"is_superuser":    user.IsSuperuser,
		"updated_at":      time.Now().UTC().Unix(),
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uint) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// List returns users ordered by id, filtered and paged by f.
func (r *UserRepository) List(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.IsActive != nil {
		filter["is_active"] = *f.IsActive
	}
	if f.IsSuperuser != nil {
		filter["is_superuser"] = *f.IsSuperuser
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(f.Skip)).
		SetLimit(int64(f.Limit))

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, nil
}

// Ping checks connectivity with the primary.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}

// EnsureIndexes creates the unique indexes the duplicate checks rely on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexUsernameUnique)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexEmailUnique)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
