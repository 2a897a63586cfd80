package connection

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"linkinpurry/backend/apperr"
	"linkinpurry/backend/database"
	"linkinpurry/backend/handlers/user"
	"linkinpurry/backend/metrics"
)

const maxUnconnected = 100

var errAlreadyLinked = apperr.Conflict("already requested or connected")

// Service is the connection state machine. Every multi-row change runs in one transaction.
type Service struct {
	db           *database.DB
	dir          *user.Directory
	purgeHistory bool
	now          func() time.Time
}

// NewService builds the state machine. When purgeHistory is set, Disconnect also deletes
// the chat history of the pair.
func NewService(db *database.DB, dir *user.Directory, purgeHistory bool) *Service {
	return &Service{db: db, dir: dir, purgeHistory: purgeHistory, now: time.Now}
}

func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(apperr.CodeOf(err)))
	}
	metrics.ConnectionTransitionsTotal.WithLabelValues(op, outcome).Inc()
}

// RequestConnection records a pending request from caller to target.
func (s *Service) RequestConnection(ctx context.Context, callerID, targetID int64) (err error) {
	defer func() { observe("request", err) }()

	if callerID == targetID {
		return apperr.InvalidOperation("cannot connect to yourself")
	}
	exists, err := s.dir.Exists(ctx, targetID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("user not found")
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var blocked bool
		if err := tx.QueryRowContext(ctx, PairBlockedQuery, callerID, targetID).Scan(&blocked); err != nil {
			return errors.Wrap(err, "connection.service.RequestConnection")
		}
		if blocked {
			return errAlreadyLinked
		}
		if _, err := tx.ExecContext(ctx, InsertRequestQuery, callerID, targetID, s.now().UTC()); err != nil {
			return errors.Wrap(err, "connection.service.RequestConnection")
		}
		return nil
	})
	return s.translate(err)
}

// AcceptRequest turns the pending request from requester to caller into a connection.
func (s *Service) AcceptRequest(ctx context.Context, callerID, requesterID int64) (err error) {
	defer func() { observe("accept", err) }()

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var pending bool
		if err := tx.QueryRowContext(ctx, RequestExistsQuery, requesterID, callerID).Scan(&pending); err != nil {
			return errors.Wrap(err, "connection.service.AcceptRequest")
		}
		if !pending {
			return apperr.NotFound("connection request not found")
		}

		now := s.now().UTC()
		if _, err := tx.ExecContext(ctx, InsertConnectionQuery, requesterID, callerID, now); err != nil {
			return errors.Wrap(err, "connection.service.AcceptRequest")
		}
		if _, err := tx.ExecContext(ctx, InsertConnectionQuery, callerID, requesterID, now); err != nil {
			return errors.Wrap(err, "connection.service.AcceptRequest")
		}
		if _, err := tx.ExecContext(ctx, DeletePairRequestsQuery, requesterID, callerID); err != nil {
			return errors.Wrap(err, "connection.service.AcceptRequest")
		}
		return nil
	})
	return s.translate(err)
}

// DeclineRequest removes the pending request from requester to caller. A missing request
// is NOT_FOUND.
func (s *Service) DeclineRequest(ctx context.Context, callerID, requesterID int64) (err error) {
	defer func() { observe("decline", err) }()

	res, err := s.db.ExecContext(ctx, DeleteRequestQuery, requesterID, callerID)
	if err != nil {
		return apperr.Internal(errors.Wrap(err, "connection.service.DeclineRequest"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(errors.Wrap(err, "connection.service.DeclineRequest"))
	}
	if n == 0 {
		return apperr.NotFound("connection request not found")
	}
	return nil
}

// Disconnect deletes both connection rows of the pair and, if configured, their chat history.
func (s *Service) Disconnect(ctx context.Context, callerID, otherID int64) (err error) {
	defer func() { observe("disconnect", err) }()

	var purged int64
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, DeleteConnectionPairQuery, callerID, otherID)
		if err != nil {
			return errors.Wrap(err, "connection.service.Disconnect")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "connection.service.Disconnect")
		}
		if n == 0 {
			return apperr.NotFound("connection not found")
		}

		if !s.purgeHistory {
			return nil
		}
		res, err = tx.ExecContext(ctx, DeleteMessagesBetweenQuery, callerID, otherID)
		if err != nil {
			return errors.Wrap(err, "connection.service.Disconnect")
		}
		purged, err = res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "connection.service.Disconnect")
		}
		return nil
	})
	if err != nil {
		return s.translate(err)
	}

	log.Info().
		Int64("user_id", callerID).
		Int64("other_id", otherID).
		Int64("messages_purged", purged).
		Msg("users disconnected")
	return nil
}

// ConnectionStatus reports self, connected or unconnected.
func (s *Service) ConnectionStatus(ctx context.Context, callerID, targetID int64) (Status, error) {
	if callerID == targetID {
		return StatusSelf, nil
	}
	connected, err := s.Connected(ctx, callerID, targetID)
	if err != nil {
		return "", err
	}
	if connected {
		return StatusConnected, nil
	}
	return StatusUnconnected, nil
}

// Relation refines ConnectionStatus with the direction of a pending request.
func (s *Service) Relation(ctx context.Context, callerID, targetID int64) (Status, error) {
	if callerID == targetID {
		return StatusSelf, nil
	}
	var connected, sent, received bool
	err := s.db.QueryRowContext(ctx, RelationQuery, callerID, targetID).Scan(&connected, &sent, &received)
	if err != nil {
		return "", apperr.Internal(errors.Wrap(err, "connection.service.Relation"))
	}
	switch {
	case connected:
		return StatusConnected, nil
	case sent:
		return StatusPendingSent, nil
	case received:
		return StatusPendingReceived, nil
	default:
		return StatusUnconnected, nil
	}
}

// Connected reports whether a connection exists between a and b in either direction.
func (s *Service) Connected(ctx context.Context, a, b int64) (bool, error) {
	var connected bool
	if err := s.db.QueryRowContext(ctx, ConnectedQuery, a, b).Scan(&connected); err != nil {
		return false, apperr.Internal(errors.Wrap(err, "connection.service.Connected"))
	}
	return connected, nil
}

// ConnectionCount returns the number of users connected to userID.
func (s *Service) ConnectionCount(ctx context.Context, userID int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, CountConnectionsQuery, userID).Scan(&count); err != nil {
		return 0, apperr.Internal(errors.Wrap(err, "connection.service.ConnectionCount"))
	}
	return count, nil
}

func (s *Service) ListConnected(ctx context.Context, userID int64) ([]Peer, error) {
	return s.list(ctx, "ListConnected", ListConnectedQuery, userID)
}

func (s *Service) ListRequested(ctx context.Context, userID int64) ([]Peer, error) {
	return s.list(ctx, "ListRequested", ListRequestedQuery, userID)
}

func (s *Service) ListIncoming(ctx context.Context, userID int64) ([]Peer, error) {
	return s.list(ctx, "ListIncoming", ListIncomingQuery, userID)
}

func (s *Service) ListUnconnected(ctx context.Context, userID int64) ([]Peer, error) {
	return s.list(ctx, "ListUnconnected", ListUnconnectedQuery, userID, maxUnconnected)
}

func (s *Service) list(ctx context.Context, op, query string, args ...interface{}) ([]Peer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "connection.service."+op))
	}
	defer rows.Close()

	peers := []Peer{}
	for rows.Next() {
		var p Peer
		if err := rows.Scan(&p.ID, &p.Username, &p.FullName, &p.ProfilePhotoPath, &p.Since); err != nil {
			return nil, apperr.Internal(errors.Wrap(err, "connection.service."+op))
		}
		peers = append(peers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(errors.Wrap(err, "connection.service."+op))
	}
	return peers, nil
}

// translate maps transaction errors onto the error taxonomy. Typed errors pass through; a
// duplicate key or an exhausted serialization retry means a concurrent request won.
func (s *Service) translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if database.IsUniqueViolation(err) || database.IsSerializationFailure(err) {
		return errAlreadyLinked
	}
	return apperr.Internal(err)
}
