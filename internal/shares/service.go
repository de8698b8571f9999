package shares

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase       = errors.New("database handle is required")
	errMissingSecretProvider = errors.New("secret provider is required")
	noOpLogger               = zap.NewNop()
)

// ServiceError wraps a failure with a stable operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable error code for transport mapping and logs.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew  = "shares.service.new"
	opCreateShare = "shares.create"
	opGetShare    = "shares.get"
	opSyncShare   = "shares.sync"
	opShareData   = "shares.data"
	opRemoveShare = "shares.remove"

	fieldShareID   = "share_id"
	fieldSessionID = "session_id"
	fieldEventID   = "event_id"

	reasonMissingDatabase       = "missing_database"
	reasonMissingSecretProvider = "missing_secret_provider"
	reasonAlreadyExists         = "already_exists"
	reasonNotFound              = "not_found"
	reasonInvalidSecret         = "invalid_secret"
	reasonLookupFailed          = "lookup_failed"
	reasonInsertFailed          = "insert_failed"
	reasonSecretFailed          = "secret_generation_failed"
	reasonPayloadEncodeFailed   = "payload_encode_failed"
	reasonEventInsertFailed     = "event_insert_failed"
	reasonShareTouchFailed      = "share_touch_failed"
	reasonDeleteFailed          = "delete_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies required by the share service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Secrets  SecretProvider
	Logger   *zap.Logger
}

// Service owns the share registry, the per-share event log and the compacted
// snapshot. It is safe for concurrent use; all mutable state lives in storage.
type Service struct {
	db      *gorm.DB
	clock   func() time.Time
	secrets SecretProvider
	logger  *zap.Logger
}

// NewService validates the configuration and returns a share service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}
	if cfg.Secrets == nil {
		return nil, newServiceError(opServiceNew, reasonMissingSecretProvider, errMissingSecretProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:      cfg.Database,
		clock:   clock,
		secrets: cfg.Secrets,
		logger:  logger,
	}, nil
}

// Create derives the share id for the session, issues a fresh secret and
// persists the share. It fails with ErrShareExists when the derived id is
// already active; the existence check and the insert share one transaction.
func (service *Service) Create(ctx context.Context, sessionID SessionID) (ShareRecord, error) {
	if service.db == nil {
		service.logError(opCreateShare, reasonMissingDatabase, errMissingDatabase)
		return ShareRecord{}, newServiceError(opCreateShare, reasonMissingDatabase, errMissingDatabase)
	}

	shareID := sessionID.ShareID()
	secret, secretErr := service.secrets.NewSecret()
	if secretErr != nil {
		service.logError(opCreateShare, reasonSecretFailed, secretErr, zap.String(fieldSessionID, sessionID.String()))
		return ShareRecord{}, newServiceError(opCreateShare, reasonSecretFailed, secretErr)
	}

	nowSeconds := service.clock().UTC().Unix()
	model := Share{
		ID:               shareID.String(),
		Secret:           secret,
		SessionID:        sessionID.String(),
		CreatedAtSeconds: nowSeconds,
		UpdatedAtSeconds: nowSeconds,
	}

	transactionError := service.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		var existing Share
		err := transaction.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", shareID.String()).
			Take(&existing).Error
		if err == nil {
			return newServiceError(opCreateShare, reasonAlreadyExists, fmt.Errorf("%w: %s", ErrShareExists, shareID))
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			service.logError(opCreateShare, reasonLookupFailed, err, zap.String(fieldShareID, shareID.String()))
			return newServiceError(opCreateShare, reasonLookupFailed, err)
		}
		if err := transaction.Create(&model).Error; err != nil {
			service.logError(opCreateShare, reasonInsertFailed, err, zap.String(fieldShareID, shareID.String()))
			return newServiceError(opCreateShare, reasonInsertFailed, err)
		}
		return nil
	})
	if transactionError != nil {
		return ShareRecord{}, transactionError
	}

	service.logger.Info("share created",
		zap.String(fieldShareID, shareID.String()),
		zap.String(fieldSessionID, sessionID.String()))

	return ShareRecord{ID: shareID, Secret: secret, SessionID: sessionID}, nil
}

// Get returns the share for the identifier or ErrShareNotFound.
func (service *Service) Get(ctx context.Context, shareID ShareID) (ShareRecord, error) {
	if service.db == nil {
		service.logError(opGetShare, reasonMissingDatabase, errMissingDatabase)
		return ShareRecord{}, newServiceError(opGetShare, reasonMissingDatabase, errMissingDatabase)
	}

	share, err := service.loadShare(ctx, service.db, opGetShare, shareID)
	if err != nil {
		return ShareRecord{}, err
	}
	return ShareRecord{
		ID:        ShareID(share.ID),
		Secret:    share.Secret,
		SessionID: SessionID(share.SessionID),
	}, nil
}

// Sync authorizes the caller and appends one immutable event holding the
// batch. It never folds state; compaction happens on read.
func (service *Service) Sync(ctx context.Context, shareID ShareID, secret string, items []ShareItem) error {
	if service.db == nil {
		service.logError(opSyncShare, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(opSyncShare, reasonMissingDatabase, errMissingDatabase)
	}

	if _, err := service.authorize(ctx, opSyncShare, shareID, secret); err != nil {
		return err
	}

	payloadJSON, marshalErr := json.Marshal(items)
	if marshalErr != nil {
		service.logError(opSyncShare, reasonPayloadEncodeFailed, marshalErr, zap.String(fieldShareID, shareID.String()))
		return newServiceError(opSyncShare, reasonPayloadEncodeFailed, fmt.Errorf("%w: %v", ErrMalformedPayload, marshalErr))
	}

	nowSeconds := service.clock().UTC().Unix()
	event := ShareEvent{
		ShareID:          shareID.String(),
		PayloadJSON:      string(payloadJSON),
		CreatedAtSeconds: nowSeconds,
	}

	transactionError := service.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := appendEvent(transaction, &event); err != nil {
			service.logError(opSyncShare, reasonEventInsertFailed, err, zap.String(fieldShareID, shareID.String()))
			return newServiceError(opSyncShare, reasonEventInsertFailed, err)
		}
		if err := transaction.Model(&Share{}).
			Where("id = ?", shareID.String()).
			Update("updated_at_s", nowSeconds).Error; err != nil {
			service.logError(opSyncShare, reasonShareTouchFailed, err, zap.String(fieldShareID, shareID.String()))
			return newServiceError(opSyncShare, reasonShareTouchFailed, err)
		}
		return nil
	})
	if transactionError != nil {
		return transactionError
	}

	service.logger.Debug("share synced",
		zap.String(fieldShareID, shareID.String()),
		zap.Int64(fieldEventID, event.EventID),
		zap.Int("items", len(items)))
	return nil
}

// Data returns the merged current state of the share. Reads are public: no
// secret is required, only a valid share id. An unknown id fails with
// ErrShareNotFound rather than an empty list, so removed shares stay
// distinguishable from empty ones.
func (service *Service) Data(ctx context.Context, shareID ShareID) ([]ShareItem, error) {
	if service.db == nil {
		service.logError(opShareData, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opShareData, reasonMissingDatabase, errMissingDatabase)
	}

	if _, err := service.loadShare(ctx, service.db, opShareData, shareID); err != nil {
		return nil, err
	}

	return service.materialize(ctx, shareID)
}

// Remove authorizes the caller and deletes the share together with every
// event and the snapshot in one transaction. Nothing referencing the id stays
// queryable afterwards.
func (service *Service) Remove(ctx context.Context, shareID ShareID, secret string) error {
	if service.db == nil {
		service.logError(opRemoveShare, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(opRemoveShare, reasonMissingDatabase, errMissingDatabase)
	}

	if _, err := service.authorize(ctx, opRemoveShare, shareID, secret); err != nil {
		return err
	}

	transactionError := service.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Where("share_id = ?", shareID.String()).Delete(&ShareEvent{}).Error; err != nil {
			return newServiceError(opRemoveShare, reasonDeleteFailed, err)
		}
		if err := transaction.Where("share_id = ?", shareID.String()).Delete(&ShareSnapshot{}).Error; err != nil {
			return newServiceError(opRemoveShare, reasonDeleteFailed, err)
		}
		if err := transaction.Where("id = ?", shareID.String()).Delete(&Share{}).Error; err != nil {
			return newServiceError(opRemoveShare, reasonDeleteFailed, err)
		}
		return nil
	})
	if transactionError != nil {
		service.logError(opRemoveShare, reasonDeleteFailed, transactionError, zap.String(fieldShareID, shareID.String()))
		return transactionError
	}

	service.logger.Info("share removed", zap.String(fieldShareID, shareID.String()))
	return nil
}

func (service *Service) loadShare(ctx context.Context, db *gorm.DB, operation string, shareID ShareID) (Share, error) {
	var share Share
	err := db.WithContext(ctx).Where("id = ?", shareID.String()).Take(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Share{}, newServiceError(operation, reasonNotFound, fmt.Errorf("%w: %s", ErrShareNotFound, shareID))
	}
	if err != nil {
		service.logError(operation, reasonLookupFailed, err, zap.String(fieldShareID, shareID.String()))
		return Share{}, newServiceError(operation, reasonLookupFailed, err)
	}
	return share, nil
}

func (service *Service) authorize(ctx context.Context, operation string, shareID ShareID, secret string) (Share, error) {
	share, err := service.loadShare(ctx, service.db, operation, shareID)
	if err != nil {
		return Share{}, err
	}
	if subtle.ConstantTimeCompare([]byte(share.Secret), []byte(secret)) != 1 {
		return Share{}, newServiceError(operation, reasonInvalidSecret, fmt.Errorf("%w: %s", ErrInvalidSecret, shareID))
	}
	return share, nil
}

func (service *Service) loggerOrDefault() *zap.Logger {
	if service == nil || service.logger == nil {
		return noOpLogger
	}
	return service.logger
}

func (service *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	service.loggerOrDefault().Error("share service error", attrs...)
}
