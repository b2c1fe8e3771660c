// Package docstore persists users, messages and summaries in Cloud Firestore.
package docstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/michikitagawa/ojohoe/internal/domain"
)

const (
	usersCollection     = "users"
	messagesCollection  = "messages"
	summariesCollection = "summaries"
)

type Store struct {
	client *firestore.Client
}

// Open initializes a Firebase app and its Firestore client. credentialsFile may be
// empty, in which case application default credentials are used.
func Open(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

type userDoc struct {
	IsPaid               bool       `firestore:"is_paid"`
	ConsultationCount    int        `firestore:"consultation_count"`
	LastConsultationDate *time.Time `firestore:"last_consultation_date"`
	SubscriptionType     string     `firestore:"subscription_type"`
	SubscriptionEnd      *time.Time `firestore:"subscription_end"`
	SubscriptionID       string     `firestore:"subscription_id"`
	PaymentCustomerID    string     `firestore:"stripe_customer_id"`
	DisplayName          string     `firestore:"display_name"`
	CreatedAt            time.Time  `firestore:"created_at"`
	UpdatedAt            time.Time  `firestore:"updated_at"`
}

func toUserDoc(u *domain.User) userDoc {
	return userDoc{
		IsPaid:               u.IsPaid,
		ConsultationCount:    u.ConsultationCount,
		LastConsultationDate: domain.UTCPtr(u.LastConsultationDate),
		SubscriptionType:     string(u.SubscriptionType),
		SubscriptionEnd:      domain.UTCPtr(u.SubscriptionEnd),
		SubscriptionID:       u.SubscriptionID,
		PaymentCustomerID:    u.PaymentCustomerID,
		DisplayName:          u.DisplayName,
		CreatedAt:            u.CreatedAt.UTC(),
		UpdatedAt:            u.UpdatedAt.UTC(),
	}
}

func (d userDoc) toDomain(id string) *domain.User {
	u := &domain.User{
		ID:                   id,
		IsPaid:               d.IsPaid,
		ConsultationCount:    d.ConsultationCount,
		LastConsultationDate: d.LastConsultationDate,
		SubscriptionType:     domain.SubscriptionType(d.SubscriptionType),
		SubscriptionEnd:      d.SubscriptionEnd,
		SubscriptionID:       d.SubscriptionID,
		PaymentCustomerID:    d.PaymentCustomerID,
		DisplayName:          d.DisplayName,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
	return u.UTC()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *Store) GetOrCreate(ctx context.Context, id string, now time.Time) (*domain.User, bool, error) {
	var (
		user    *domain.User
		created bool
	)
	ref := s.client.Collection(usersCollection).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err == nil {
			var d userDoc
			if err := snap.DataTo(&d); err != nil {
				return fmt.Errorf("decode user: %w", err)
			}
			user, created = d.toDomain(id), false
			return nil
		}
		if !isNotFound(err) {
			return err
		}
		user, created = domain.NewUser(id, now), true
		return tx.Create(ref, toUserDoc(user))
	})
	if err != nil {
		return nil, false, fmt.Errorf("get or create user: %w", err)
	}
	return user, created, nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return d.toDomain(id), nil
}

// Update runs fn inside a Firestore transaction, creating the document when absent.
// Firestore may retry the transaction, so fn can run more than once.
func (s *Store) Update(ctx context.Context, id string, now time.Time, fn func(u *domain.User, created bool) error) (*domain.User, error) {
	var out *domain.User
	ref := s.client.Collection(usersCollection).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var (
			u       *domain.User
			created bool
		)
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var d userDoc
			if err := snap.DataTo(&d); err != nil {
				return fmt.Errorf("decode user: %w", err)
			}
			u = d.toDomain(id)
		case isNotFound(err):
			u, created = domain.NewUser(id, now), true
		default:
			return err
		}

		if err := fn(u, created); err != nil {
			return err
		}
		u.UpdatedAt = now.UTC()
		out = u.UTC()
		return tx.Set(ref, toUserDoc(u))
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return out, nil
}

func (s *Store) SetDisplayName(ctx context.Context, id, name string) error {
	_, err := s.client.Collection(usersCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "display_name", Value: name},
		{Path: "updated_at", Value: time.Now().UTC()},
	})
	if err != nil {
		if isNotFound(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("set display name: %w", err)
	}
	return nil
}
