package stores

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/docstore"
)

// UsersCollection is the collection holding UserRecord documents.
const UsersCollection = "users"

// EmailsCollection holds one claim per registered email, keyed by the email
// itself. Its _id uniqueness is what keeps two accounts off the same address.
const EmailsCollection = "user_emails"

// FieldClaimUser is the owning user id on an email claim.
const FieldClaimUser = "userId"

// Field names shared with CRUD code outside the core.
const (
	FieldEmail        = "email"
	FieldName         = "name"
	FieldCountry      = "country"
	FieldPassword     = "password"
	FieldRole         = "role"
	FieldResetToken   = "resetPasswordToken"
	FieldResetExpires = "resetPasswordExpires"
	FieldCreatedAt    = "createdAt"
	FieldUpdatedAt    = "updatedAt"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserRecord is the stored form of an account. PasswordHash never leaves the core.
type UserRecord struct {
	ID           string
	Email        string
	Name         string
	Country      string
	PasswordHash string
	Role         string
	ResetDigest  string
	ResetExpires time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *UserRecord) document() docstore.Document {
	doc := docstore.Document{
		docstore.IDField: u.ID,
		FieldEmail:       u.Email,
		FieldName:        u.Name,
		FieldCountry:     u.Country,
		FieldPassword:    u.PasswordHash,
		FieldRole:        u.Role,
		FieldCreatedAt:   u.CreatedAt,
		FieldUpdatedAt:   u.UpdatedAt,
	}
	if u.ResetDigest != "" {
		doc[FieldResetToken] = u.ResetDigest
		doc[FieldResetExpires] = u.ResetExpires
	}
	return doc
}

func userFromDocument(doc docstore.Document) *UserRecord {
	u := &UserRecord{
		ID:           doc.ID(),
		Email:        doc.String(FieldEmail),
		Name:         doc.String(FieldName),
		Country:      doc.String(FieldCountry),
		PasswordHash: doc.String(FieldPassword),
		Role:         doc.String(FieldRole),
		ResetDigest:  doc.String(FieldResetToken),
	}
	u.ResetExpires, _ = doc.Time(FieldResetExpires)
	u.CreatedAt, _ = doc.Time(FieldCreatedAt)
	u.UpdatedAt, _ = doc.Time(FieldUpdatedAt)
	return u
}

// Users adapts the users collection of a docstore.Store.
type Users struct {
	store docstore.Store
}

// NewUsers wraps store.
func NewUsers(store docstore.Store) *Users {
	return &Users{store: store}
}

func (r *Users) findOne(ctx context.Context, filter docstore.Filter) (*UserRecord, error) {
	doc, err := r.store.FindOne(ctx, UsersCollection, filter)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return userFromDocument(doc), nil
}

// ByEmail looks a user up by exact email.
func (r *Users) ByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return r.findOne(ctx, docstore.Filter{FieldEmail: email})
}

// ByID looks a user up by primary key.
func (r *Users) ByID(ctx context.Context, id string) (*UserRecord, error) {
	return r.findOne(ctx, docstore.Filter{docstore.IDField: id})
}

// ByResetDigest finds the user holding digest with an expiry after now.
// An expired digest is reported exactly like an unknown one.
func (r *Users) ByResetDigest(ctx context.Context, digest string, now time.Time) (*UserRecord, error) {
	return r.findOne(ctx, docstore.Filter{
		FieldResetToken:   digest,
		FieldResetExpires: docstore.Gt(now),
	})
}

// Insert claims u.Email and then stores u. A taken email or id surfaces as
// docstore.ErrDuplicate; a failed user write releases the claim again.
func (r *Users) Insert(ctx context.Context, u *UserRecord) error {
	claim := docstore.Document{
		docstore.IDField: u.Email,
		FieldClaimUser:   u.ID,
		FieldCreatedAt:   u.CreatedAt,
	}
	if err := r.store.InsertOne(ctx, EmailsCollection, claim); err != nil {
		return err
	}
	if err := r.store.InsertOne(ctx, UsersCollection, u.document()); err != nil {
		if _, relErr := r.releaseEmail(ctx, u.Email, u.ID); relErr != nil {
			return errors.Join(err, relErr)
		}
		return err
	}
	return nil
}

func (r *Users) releaseEmail(ctx context.Context, email, id string) (int64, error) {
	return r.store.DeleteOne(ctx, EmailsCollection, docstore.Filter{docstore.IDField: email, FieldClaimUser: id})
}

// SetResetDigest records a pending reset for id.
func (r *Users) SetResetDigest(ctx context.Context, id, digest string, expires time.Time) error {
	return r.update(ctx, id, docstore.Update{Set: map[string]any{
		FieldResetToken:   digest,
		FieldResetExpires: expires,
	}})
}

// SetPassword replaces the credential digest and, in the same write, clears any
// pending reset.
func (r *Users) SetPassword(ctx context.Context, id, hash string, now time.Time) error {
	return r.update(ctx, id, docstore.Update{
		Set:   map[string]any{FieldPassword: hash, FieldUpdatedAt: now},
		Unset: []string{FieldResetToken, FieldResetExpires},
	})
}

// UpdateHash swaps the credential digest without touching a pending reset.
// Used when a legacy or weaker digest is upgraded after login.
func (r *Users) UpdateHash(ctx context.Context, id, hash string, now time.Time) error {
	return r.update(ctx, id, docstore.Update{Set: map[string]any{FieldPassword: hash, FieldUpdatedAt: now}})
}

// ConsumeReset is SetPassword guarded by the digest, so a token can be used once
// even when two resets race.
func (r *Users) ConsumeReset(ctx context.Context, id, digest, hash string, now time.Time) error {
	matched, err := r.store.UpdateOne(ctx, UsersCollection,
		docstore.Filter{docstore.IDField: id, FieldResetToken: digest},
		docstore.Update{
			Set:   map[string]any{FieldPassword: hash, FieldUpdatedAt: now},
			Unset: []string{FieldResetToken, FieldResetExpires},
		},
	)
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetRole changes the role of id.
func (r *Users) SetRole(ctx context.Context, id, role string, now time.Time) error {
	return r.update(ctx, id, docstore.Update{Set: map[string]any{FieldRole: role, FieldUpdatedAt: now}})
}

// Delete removes id and frees its email for a later registration.
func (r *Users) Delete(ctx context.Context, id string) error {
	n, err := r.store.DeleteOne(ctx, UsersCollection, docstore.Filter{docstore.IDField: id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	_, err = r.store.DeleteOne(ctx, EmailsCollection, docstore.Filter{FieldClaimUser: id})
	return err
}

func (r *Users) update(ctx context.Context, id string, u docstore.Update) error {
	matched, err := r.store.UpdateOne(ctx, UsersCollection, docstore.Filter{docstore.IDField: id}, u)
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrUserNotFound
	}
	return nil
}
