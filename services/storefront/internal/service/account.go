package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/realtime"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

const minPasswordLength = 8

var phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// AccountService регистрация врачей, модерация и сессии
type AccountService struct {
	logger     *zap.Logger
	tx         repository.TxManager
	accounts   repository.AccountRepository
	sessions   repository.SessionRepository
	events     eventWriter
	changes    ChangePublisher
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAccountService создаёт AccountService
func NewAccountService(
	logger *zap.Logger,
	tx repository.TxManager,
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	outbox repository.OutboxRepository,
	topics Topics,
	changes ChangePublisher,
	sessionTTL time.Duration,
) *AccountService {
	return &AccountService{
		logger:     logger,
		tx:         tx,
		accounts:   accounts,
		sessions:   sessions,
		events:     eventWriter{outbox: outbox, topics: topics},
		changes:    changes,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// validEmail только голый адрес, без display name
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// RegisterInput заявка врача
type RegisterInput struct {
	Email         string
	Password      string
	FullName      string
	Phone         string
	ClinicName    string
	LicenseNumber string
	City          string
}

func (in RegisterInput) validate() error {
	if !validEmail(in.Email) {
		return invalid("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		return invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(in.FullName) == "" {
		return invalid("full_name", "is required")
	}
	if !phonePattern.MatchString(in.Phone) {
		return invalid("phone", "must be in E.164 format, e.g. +919812345678")
	}
	if strings.TrimSpace(in.LicenseNumber) == "" {
		return invalid("license_number", "is required")
	}
	return nil
}

// Register создаёт врача в статусе pending
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (repository.Account, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.validate(); err != nil {
		return repository.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return repository.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	acc := repository.Account{
		ID:            uuid.NewString(),
		Email:         in.Email,
		PasswordHash:  string(hash),
		Role:          repository.RoleDoctor,
		Status:        repository.StatusPending,
		FullName:      strings.TrimSpace(in.FullName),
		Phone:         in.Phone,
		ClinicName:    strings.TrimSpace(in.ClinicName),
		LicenseNumber: strings.TrimSpace(in.LicenseNumber),
		City:          strings.TrimSpace(in.City),
		CreditLimit:   decimal.Zero,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, acc); err != nil {
			return err
		}
		return s.events.write(ctx, s.events.topics.Doctors, acc.ID, events.Envelope{
			EventType: events.DoctorRegistered,
			Doctor:    doctorRef(acc),
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return repository.Account{}, fmt.Errorf("account with email %s: %w", in.Email, err)
		}
		s.logger.Error("failed to register doctor", zap.Error(err))
		return repository.Account{}, fmt.Errorf("register doctor: %w", err)
	}

	created, err := s.accounts.GetByID(ctx, acc.ID)
	if err != nil {
		return repository.Account{}, fmt.Errorf("get registered account: %w", err)
	}

	s.logger.Info("doctor registered", zap.String("account_id", created.ID), zap.String("email", created.Email))
	publishChanges(ctx, s.changes, s.logger, realtime.Change{Table: realtime.TableDoctors, Action: realtime.ActionInsert, ID: created.ID})
	return created, nil
}

// LoginOutput аккаунт и новая сессия
type LoginOutput struct {
	Account   repository.Account
	SessionID string
}

// Login проверяет пароль и открывает сессию.
// Врач в статусе pending может войти и увидеть статус заявки, заказывать он не может.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginOutput, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to get account", zap.Error(err))
		return nil, fmt.Errorf("get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if acc.Status == repository.StatusRejected {
		return nil, ErrAccountRejected
	}

	sessionID, err := s.sessions.CreateSession(ctx, acc.ID, s.sessionTTL)
	if err != nil {
		s.logger.Error("failed to create session", zap.Error(err))
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("account logged in", zap.String("account_id", acc.ID), zap.String("role", string(acc.Role)))
	return &LoginOutput{Account: acc, SessionID: sessionID}, nil
}

// Logout удаляет сессию
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate возвращает владельца сессии и продлевает её TTL
func (s *AccountService) Authenticate(ctx context.Context, sessionID string) (repository.Account, error) {
	if sessionID == "" {
		return repository.Account{}, ErrUnauthenticated
	}

	accountID, err := s.sessions.GetAccountID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return repository.Account{}, ErrUnauthenticated
		}
		return repository.Account{}, fmt.Errorf("get session: %w", err)
	}

	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Account{}, ErrUnauthenticated
		}
		return repository.Account{}, fmt.Errorf("get account: %w", err)
	}
	if acc.Status == repository.StatusRejected {
		_ = s.sessions.DeleteSession(ctx, sessionID)
		return repository.Account{}, ErrAccountRejected
	}

	if err := s.sessions.RefreshSession(ctx, sessionID, s.sessionTTL); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		s.logger.Warn("failed to refresh session", zap.Error(err))
	}
	return acc, nil
}

// GetAccount врач видит только себя
func (s *AccountService) GetAccount(ctx context.Context, actor Actor, id string) (repository.Account, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return repository.Account{}, repository.ErrNotFound
	}
	return s.accounts.GetByID(ctx, id)
}

// ListDoctors врачи с фильтром по статусу (admin)
func (s *AccountService) ListDoctors(ctx context.Context, actor Actor, status repository.AccountStatus, limit, offset int) ([]repository.Account, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if status != "" && !status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.accounts.List(ctx, repository.AccountQuery{
		Role:   repository.RoleDoctor,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

// ApproveDoctor pending|suspended → approved с кредитным лимитом (0: без лимита)
func (s *AccountService) ApproveDoctor(ctx context.Context, actor Actor, id string, creditLimit decimal.Decimal) (repository.Account, error) {
	if creditLimit.IsNegative() {
		return repository.Account{}, invalid("credit_limit", "must not be negative")
	}
	return s.moderate(ctx, actor, id, func(acc *repository.Account) (*events.Envelope, error) {
		if acc.Status != repository.StatusPending && acc.Status != repository.StatusSuspended {
			return nil, fmt.Errorf("approve doctor in status %s: %w", acc.Status, ErrInvalidStateTransition)
		}
		now := s.now()
		acc.Status = repository.StatusApproved
		acc.CreditLimit = creditLimit.Round(2)
		acc.ApprovedAt = &now
		acc.ApprovedBy = actor.ID
		acc.RejectionReason = ""
		return &events.Envelope{EventType: events.DoctorApproved, Doctor: doctorRef(*acc)}, nil
	})
}

// RejectDoctor pending → rejected
func (s *AccountService) RejectDoctor(ctx context.Context, actor Actor, id, reason string) (repository.Account, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return repository.Account{}, invalid("reason", "is required")
	}
	return s.moderate(ctx, actor, id, func(acc *repository.Account) (*events.Envelope, error) {
		if acc.Status != repository.StatusPending {
			return nil, fmt.Errorf("reject doctor in status %s: %w", acc.Status, ErrInvalidStateTransition)
		}
		acc.Status = repository.StatusRejected
		acc.RejectionReason = reason
		doc := doctorRef(*acc)
		doc.Reason = reason
		return &events.Envelope{EventType: events.DoctorRejected, Doctor: doc}, nil
	})
}

// SuspendDoctor approved → suspended; новые заказы блокируются, долг остаётся
func (s *AccountService) SuspendDoctor(ctx context.Context, actor Actor, id string) (repository.Account, error) {
	return s.moderate(ctx, actor, id, func(acc *repository.Account) (*events.Envelope, error) {
		if acc.Status != repository.StatusApproved {
			return nil, fmt.Errorf("suspend doctor in status %s: %w", acc.Status, ErrInvalidStateTransition)
		}
		acc.Status = repository.StatusSuspended
		return nil, nil
	})
}

// SetCreditLimit лимит долга врача (admin)
func (s *AccountService) SetCreditLimit(ctx context.Context, actor Actor, id string, limit decimal.Decimal) (repository.Account, error) {
	if limit.IsNegative() {
		return repository.Account{}, invalid("credit_limit", "must not be negative")
	}
	return s.moderate(ctx, actor, id, func(acc *repository.Account) (*events.Envelope, error) {
		acc.CreditLimit = limit.Round(2)
		return nil, nil
	})
}

// moderate блокирует строку врача, применяет mutate и пишет событие в одной транзакции
func (s *AccountService) moderate(ctx context.Context, actor Actor, id string, mutate func(acc *repository.Account) (*events.Envelope, error)) (repository.Account, error) {
	if !actor.IsAdmin() {
		return repository.Account{}, ErrForbidden
	}

	var result repository.Account
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		acc, err := s.accounts.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if acc.Role != repository.RoleDoctor {
			return repository.ErrNotFound
		}

		env, err := mutate(&acc)
		if err != nil {
			return err
		}
		if err := s.accounts.Update(ctx, acc); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		if env != nil {
			if err := s.events.write(ctx, s.events.topics.Doctors, acc.ID, *env); err != nil {
				return err
			}
		}
		result = acc
		return nil
	})
	if err != nil {
		return repository.Account{}, err
	}

	s.logger.Info("doctor account updated",
		zap.String("account_id", result.ID),
		zap.String("status", string(result.Status)),
		zap.String("credit_limit", result.CreditLimit.StringFixed(2)),
		zap.String("actor_id", actor.ID),
	)
	if result.Status == repository.StatusRejected {
		// отклонённый врач не должен оставаться залогиненным
		if _, err := s.sessions.DeleteAccountSessions(ctx, result.ID); err != nil {
			s.logger.Warn("failed to revoke sessions", zap.String("account_id", result.ID), zap.Error(err))
		}
	}
	publishChanges(ctx, s.changes, s.logger, realtime.Change{Table: realtime.TableDoctors, Action: realtime.ActionUpdate, ID: result.ID, DoctorID: result.ID})
	return result, nil
}

// CreateAdminInput учётка администратора
type CreateAdminInput struct {
	Email    string
	Password string
	FullName string
}

// CreateAdmin создаёт администратора сразу в статусе approved (CLI)
func (s *AccountService) CreateAdmin(ctx context.Context, in CreateAdminInput) (repository.Account, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if !validEmail(in.Email) {
		return repository.Account{}, invalid("email", "must be a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		return repository.Account{}, invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(in.FullName) == "" {
		return repository.Account{}, invalid("full_name", "is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return repository.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	acc := repository.Account{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         repository.RoleAdmin,
		Status:       repository.StatusApproved,
		FullName:     strings.TrimSpace(in.FullName),
		CreditLimit:  decimal.Zero,
		ApprovedAt:   &now,
		ApprovedBy:   SystemActor.ID,
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return repository.Account{}, fmt.Errorf("account with email %s: %w", in.Email, err)
		}
		return repository.Account{}, fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info("admin created", zap.String("account_id", acc.ID), zap.String("email", acc.Email))
	return acc, nil
}
