package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safedev/accessgate/internal/core/domain"
)

const (
	collectionUsers    = "users"
	collectionCounters = "counters"
	userSequence       = "users"
)

// UserRepository implements ports.UserRepository. The uid doubles as _id and
// is drawn from a counter document so it stays numeric and monotonic.
type UserRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		col:      db.Collection(collectionUsers),
		counters: db.Collection(collectionCounters),
	}
}

type userDoc struct {
	UID          int64      `bson:"_id"`
	Username     string     `bson:"username"`
	Password     string     `bson:"password"`
	HWID         *string    `bson:"hwid"`
	ExternalID   string     `bson:"discord_id"`
	InviteCode   string     `bson:"invite_code"`
	Status       string     `bson:"status"`
	RegisterDate time.Time  `bson:"register_date"`
	LastLogin    *time.Time `bson:"last_login"`
}

func (d *userDoc) toDomain() *domain.User {
	u := &domain.User{
		UID:          d.UID,
		Username:     d.Username,
		Password:     d.Password,
		HWID:         d.HWID,
		ExternalID:   d.ExternalID,
		InviteCode:   d.InviteCode,
		Status:       domain.UserStatus(d.Status),
		RegisterDate: d.RegisterDate.UTC(),
	}
	if d.LastLogin != nil {
		t := d.LastLogin.UTC()
		u.LastLogin = &t
	}
	return u
}

// EnsureIndexes creates the unique username index that backs ErrUsernameTaken.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	return err
}

func (r *UserRepository) nextUID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": userSequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next uid: %w", err)
	}
	return counter.Seq, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	uid, err := r.nextUID(ctx)
	if err != nil {
		return nil, err
	}

	status := user.Status
	if status == "" {
		status = domain.StatusActive
	}
	doc := userDoc{
		UID:          uid,
		Username:     user.Username,
		Password:     user.Password,
		ExternalID:   user.ExternalID,
		InviteCode:   user.InviteCode,
		Status:       string(status),
		RegisterDate: user.RegisterDate.UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, uid int64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": uid})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, nil
}

func (r *UserRepository) SetStatus(ctx context.Context, uid int64, status domain.UserStatus) error {
	return r.updateExisting(ctx, "set status", uid, bson.M{"$set": bson.M{"status": string(status)}})
}

func (r *UserRepository) ResetHWID(ctx context.Context, uid int64) error {
	return r.updateExisting(ctx, "reset hwid", uid, bson.M{"$set": bson.M{"hwid": nil}})
}

// BindHWID matches documents whose hwid is null or missing.
func (r *UserRepository) BindHWID(ctx context.Context, uid int64, hwid string, at time.Time) (bool, error) {
	filter := bson.M{"_id": uid, "hwid": nil, "status": string(domain.StatusActive)}
	update := bson.M{"$set": bson.M{"hwid": hwid, "last_login": at.UTC()}}
	return r.conditional(ctx, "bind hwid", filter, update)
}

func (r *UserRepository) TouchLogin(ctx context.Context, uid int64, hwid string, at time.Time) (bool, error) {
	filter := bson.M{"_id": uid, "hwid": hwid, "status": string(domain.StatusActive)}
	update := bson.M{"$set": bson.M{"last_login": at.UTC()}}
	return r.conditional(ctx, "touch login", filter, update)
}

func (r *UserRepository) updateExisting(ctx context.Context, op string, uid int64, update bson.M) error {
	ok, err := r.conditional(ctx, op, bson.M{"_id": uid}, update)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) conditional(ctx context.Context, op string, filter, update bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return res.MatchedCount > 0, nil
}
