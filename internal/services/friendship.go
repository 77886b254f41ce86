package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hexsera/hexpoint/internal/logging"
	"github.com/hexsera/hexpoint/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"

	requesterForeignKey = "friendships_requester_id_fkey"
	receiverForeignKey  = "friendships_receiver_id_fkey"
	selfFriendCheck     = "ck_no_self_friend"
)

const friendshipColumns = `id, requester_id, receiver_id, status, created_at`

type FriendshipServiceInterface interface {
	CreateRequest(ctx context.Context, requesterID, receiverID int64) (*models.Friendship, error)
	ListRequests(ctx context.Context, userID int64, statusFilter string) ([]models.FriendRequestData, error)
	Accept(ctx context.Context, requesterID, receiverID int64) (*models.Friendship, error)
	Reject(ctx context.Context, requesterID, receiverID int64) (*models.Friendship, error)
}

type FriendshipService struct {
	db DB
}

func NewFriendshipService(db DB) *FriendshipService {
	return &FriendshipService{db: db}
}

// CreateRequest inserts a pending request from requester to receiver after
// checking both users exist and that neither direction of the pair already
// has a row.
func (s *FriendshipService) CreateRequest(ctx context.Context, requesterID, receiverID int64) (*models.Friendship, error) {
	if requesterID == receiverID {
		return nil, ErrCannotFriendSelf
	}

	var created *models.Friendship
	err := runInTx(ctx, s.db, func(tx Tx) error {
		existing, err := lockExistingUsers(ctx, tx, requesterID, receiverID)
		if err != nil {
			return err
		}
		if !existing[requesterID] {
			return ErrRequesterNotFound
		}
		if !existing[receiverID] {
			return ErrReceiverNotFound
		}

		forward, err := findByOrderedPair(ctx, tx, requesterID, receiverID)
		if err != nil {
			return err
		}
		if forward != nil {
			return forwardConflict(forward.Status)
		}

		reverse, err := findByOrderedPair(ctx, tx, receiverID, requesterID)
		if err != nil {
			return err
		}
		if reverse != nil {
			return reverseConflict(reverse.Status)
		}

		created, err = insertPending(ctx, tx, requesterID, receiverID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.Info("Friend request created", map[string]interface{}{
		"friendship_id": created.ID,
		"requester_id":  created.RequesterID,
		"receiver_id":   created.ReceiverID,
	})
	return created, nil
}

// ListRequests returns every friendship the user takes part in, in either
// role. statusFilter is one of pending, accepted, rejected or all; empty
// means pending.
func (s *FriendshipService) ListRequests(ctx context.Context, userID int64, statusFilter string) ([]models.FriendRequestData, error) {
	status, all, ok := models.ParseFriendshipFilter(statusFilter)
	if !ok {
		return nil, ErrInvalidStatusFilter
	}

	query := `SELECT f.id, f.requester_id, ru.nickname, f.receiver_id, rv.nickname, f.status
		 FROM friendships f
		 JOIN users ru ON ru.id = f.requester_id
		 JOIN users rv ON rv.id = f.receiver_id
		 WHERE (f.requester_id = $1 OR f.receiver_id = $1)`
	args := []any{userID}
	if !all {
		query += ` AND f.status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY f.created_at, f.id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	requests := []models.FriendRequestData{}
	for rows.Next() {
		var r models.FriendRequestData
		if err := rows.Scan(&r.ID, &r.RequesterID, &r.RequesterNickname, &r.ReceiverID, &r.ReceiverNickname, &r.Status); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	return requests, nil
}

// Accept marks the (requester, receiver) row accepted regardless of its
// current status.
func (s *FriendshipService) Accept(ctx context.Context, requesterID, receiverID int64) (*models.Friendship, error) {
	return s.setStatus(ctx, requesterID, receiverID, models.FriendshipStatusAccepted)
}

// Reject marks the (requester, receiver) row rejected regardless of its
// current status.
func (s *FriendshipService) Reject(ctx context.Context, requesterID, receiverID int64) (*models.Friendship, error) {
	return s.setStatus(ctx, requesterID, receiverID, models.FriendshipStatusRejected)
}

func (s *FriendshipService) setStatus(ctx context.Context, requesterID, receiverID int64, status models.FriendshipStatus) (*models.Friendship, error) {
	f := &models.Friendship{}
	err := s.db.QueryRow(ctx,
		`UPDATE friendships SET status = $3
		 WHERE requester_id = $1 AND receiver_id = $2
		 RETURNING `+friendshipColumns,
		requesterID, receiverID, string(status),
	).Scan(&f.ID, &f.RequesterID, &f.ReceiverID, &f.Status, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update friend request status: %w", err)
	}

	logging.Info("Friend request status updated", map[string]interface{}{
		"friendship_id": f.ID,
		"requester_id":  f.RequesterID,
		"receiver_id":   f.ReceiverID,
		"status":        string(f.Status),
	})
	return f, nil
}

// findByOrderedPair returns nil without error when no row exists.
func findByOrderedPair(ctx context.Context, q DBConn, requesterID, receiverID int64) (*models.Friendship, error) {
	f := &models.Friendship{}
	err := q.QueryRow(ctx,
		`SELECT `+friendshipColumns+`
		 FROM friendships
		 WHERE requester_id = $1 AND receiver_id = $2`,
		requesterID, receiverID,
	).Scan(&f.ID, &f.RequesterID, &f.ReceiverID, &f.Status, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find friendship: %w", err)
	}
	return f, nil
}

func insertPending(ctx context.Context, q DBConn, requesterID, receiverID int64) (*models.Friendship, error) {
	f := &models.Friendship{}
	err := q.QueryRow(ctx,
		`INSERT INTO friendships (requester_id, receiver_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING `+friendshipColumns,
		requesterID, receiverID, string(models.FriendshipStatusPending),
	).Scan(&f.ID, &f.RequesterID, &f.ReceiverID, &f.Status, &f.CreatedAt)
	if err != nil {
		if mapped := mapInsertError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert friend request: %w", err)
	}
	return f, nil
}

// mapInsertError turns constraint violations raised by the friendships
// table into caller-facing errors. It returns nil for anything else.
func mapInsertError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrFriendRequestAlreadySent
	case pgCheckViolation:
		if pgErr.ConstraintName == selfFriendCheck {
			return ErrCannotFriendSelf
		}
	case pgForeignKeyViolation:
		switch pgErr.ConstraintName {
		case requesterForeignKey:
			return ErrRequesterNotFound
		case receiverForeignKey:
			return ErrReceiverNotFound
		}
	}
	return nil
}

func forwardConflict(status models.FriendshipStatus) error {
	switch status {
	case models.FriendshipStatusAccepted:
		return ErrAlreadyFriends
	case models.FriendshipStatusRejected:
		return ErrFriendRequestRejected
	default:
		return ErrFriendRequestAlreadySent
	}
}

func reverseConflict(status models.FriendshipStatus) error {
	switch status {
	case models.FriendshipStatusAccepted:
		return ErrAlreadyFriends
	case models.FriendshipStatusRejected:
		return ErrReverseRequestRejected
	default:
		return ErrReverseRequestPending
	}
}
