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

const collectionInvites = "invites"

// InviteRepository implements ports.InviteRepository; the code is the _id.
type InviteRepository struct {
	col *mongo.Collection
}

func NewInviteRepository(db *mongo.Database) *InviteRepository {
	return &InviteRepository{col: db.Collection(collectionInvites)}
}

type inviteDoc struct {
	Code           string    `bson:"_id"`
	ExpirationDate time.Time `bson:"expiration_date"`
	Used           bool      `bson:"used"`
}

func (d *inviteDoc) toDomain() *domain.Invite {
	return &domain.Invite{Code: d.Code, ExpirationDate: d.ExpirationDate.UTC(), Used: d.Used}
}

func (r *InviteRepository) Create(ctx context.Context, invite *domain.Invite) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := inviteDoc{Code: invite.Code, ExpirationDate: invite.ExpirationDate.UTC()}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateInvite
		}
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

func (r *InviteRepository) FindByCode(ctx context.Context, code string) (*domain.Invite, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc inviteDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": code}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("find invite: %w", err)
	}
	return doc.toDomain(), nil
}

// MarkUsed flips used only while the invite is unexpired at now.
func (r *InviteRepository) MarkUsed(ctx context.Context, code string, now time.Time) (bool, error) {
	return r.flip(ctx, "mark invite used",
		bson.M{"_id": code, "used": false, "expiration_date": bson.M{"$gte": now.UTC()}}, true)
}

func (r *InviteRepository) Release(ctx context.Context, code string) error {
	_, err := r.flip(ctx, "release invite", bson.M{"_id": code, "used": true}, false)
	return err
}

func (r *InviteRepository) List(ctx context.Context) ([]*domain.Invite, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "expiration_date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	var docs []inviteDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	invites := make([]*domain.Invite, 0, len(docs))
	for i := range docs {
		invites = append(invites, docs[i].toDomain())
	}
	return invites, nil
}

func (r *InviteRepository) flip(ctx context.Context, op string, filter bson.M, to bool) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"used": to}})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return res.MatchedCount == 1, nil
}
