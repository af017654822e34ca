package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
	repoMocks "github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository/mocks"
)

func TestAccountService_Register_Validation(t *testing.T) {
	valid := RegisterInput{
		Email:         "Rao@Clinic.in",
		Password:      "s3cret-pass",
		FullName:      "Dr. Rao",
		Phone:         "+919800000001",
		LicenseNumber: "MCI-12345",
	}

	tests := []struct {
		name      string
		mutate    func(in *RegisterInput)
		wantField string
	}{
		{name: "bad email", mutate: func(in *RegisterInput) { in.Email = "rao-at-clinic" }, wantField: "email"},
		{name: "display name email", mutate: func(in *RegisterInput) { in.Email = "Rao <rao@clinic.in>" }, wantField: "email"},
		{name: "short password", mutate: func(in *RegisterInput) { in.Password = "1234567" }, wantField: "password"},
		{name: "no name", mutate: func(in *RegisterInput) { in.FullName = "  " }, wantField: "full_name"},
		{name: "local phone", mutate: func(in *RegisterInput) { in.Phone = "09800000001" }, wantField: "phone"},
		{name: "no license", mutate: func(in *RegisterInput) { in.LicenseNumber = "" }, wantField: "license_number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := valid
			tt.mutate(&in)

			_, err := f.accounts.Register(context.Background(), in)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}

	t.Run("valid input lower-cases email", func(t *testing.T) {
		f := newFixture(t)
		acc, err := f.accounts.Register(context.Background(), valid)
		require.NoError(t, err)
		assert.Equal(t, "rao@clinic.in", acc.Email)
		assert.Equal(t, repository.StatusPending, acc.Status)
		assert.Equal(t, repository.RoleDoctor, acc.Role)
		assert.NotEqual(t, valid.Password, acc.PasswordHash)

		registered := f.outboxEvents(t, events.DoctorRegistered)
		require.Len(t, registered, 1)
		assert.Equal(t, acc.ID, registered[0].Doctor.ID)

		_, err = f.accounts.Register(context.Background(), valid)
		require.ErrorIs(t, err, repository.ErrAlreadyExists)
	})
}

func TestAccountService_LoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)

	_, err := f.accounts.Login(ctx, "rao@clinic.in", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.accounts.Login(ctx, "nobody@clinic.in", "s3cret-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	out, err := f.accounts.Login(ctx, " RAO@clinic.in ", "s3cret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, out.SessionID)
	assert.Equal(t, doc.ID, out.Account.ID)

	acc, err := f.accounts.Authenticate(ctx, out.SessionID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, acc.ID)

	require.NoError(t, f.accounts.Logout(ctx, out.SessionID))
	_, err = f.accounts.Authenticate(ctx, out.SessionID)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.accounts.Authenticate(ctx, "")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAccountService_Authenticate_RefreshesSession(t *testing.T) {
	ctx := context.Background()
	accounts := repoMocks.NewAccountRepository(t)
	sessions := repoMocks.NewSessionRepository(t)
	svc := NewAccountService(zap.NewNop(), repoMocks.NewTxManager(t), accounts, sessions, repoMocks.NewOutboxRepository(t), testTopics, nil, 30*time.Minute)

	sessions.On("GetAccountID", mock.Anything, "sess-1").Return("doc-1", nil).Once()
	accounts.On("GetByID", mock.Anything, "doc-1").Return(repository.Account{ID: "doc-1", Status: repository.StatusPending}, nil).Once()
	sessions.On("RefreshSession", mock.Anything, "sess-1", 30*time.Minute).Return(nil).Once()

	acc, err := svc.Authenticate(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", acc.ID)
}

func TestAccountService_RejectedDoctor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc, err := f.accounts.Register(ctx, RegisterInput{
		Email: "fake@clinic.in", Password: "s3cret-pass", FullName: "Dr. Fake", Phone: "+919800000009", LicenseNumber: "MCI-0",
	})
	require.NoError(t, err)

	// pending врач может войти, в том числе с двух устройств
	out, err := f.accounts.Login(ctx, "fake@clinic.in", "s3cret-pass")
	require.NoError(t, err)
	second, err := f.accounts.Login(ctx, "fake@clinic.in", "s3cret-pass")
	require.NoError(t, err)
	other := f.doctor(t, "rao@clinic.in", 0)
	otherSession, err := f.store.Sessions().CreateSession(ctx, other.ID, time.Hour)
	require.NoError(t, err)

	_, err = f.accounts.RejectDoctor(ctx, adminActor, acc.ID, "")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	rejected, err := f.accounts.RejectDoctor(ctx, adminActor, acc.ID, "license not found in registry")
	require.NoError(t, err)
	assert.Equal(t, repository.StatusRejected, rejected.Status)

	_, err = f.accounts.Login(ctx, "fake@clinic.in", "s3cret-pass")
	require.ErrorIs(t, err, ErrAccountRejected)
	// сессии отозваны при отклонении
	for _, id := range []string{out.SessionID, second.SessionID} {
		_, err = f.store.Sessions().GetAccountID(ctx, id)
		require.ErrorIs(t, err, repository.ErrSessionNotFound)
		_, err = f.accounts.Authenticate(ctx, id)
		require.ErrorIs(t, err, ErrUnauthenticated)
	}
	owner, err := f.store.Sessions().GetAccountID(ctx, otherSession)
	require.NoError(t, err)
	assert.Equal(t, other.ID, owner)

	ev := f.outboxEvents(t, events.DoctorRejected)
	require.Len(t, ev, 1)
	assert.Equal(t, "license not found in registry", ev[0].Doctor.Reason)
}

func TestAccountService_ModerationTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		from    repository.AccountStatus
		action  func(s *AccountService, id string) (repository.Account, error)
		want    repository.AccountStatus
		wantErr error
	}{
		{
			name: "approve pending",
			from: repository.StatusPending,
			action: func(s *AccountService, id string) (repository.Account, error) {
				return s.ApproveDoctor(ctx, adminActor, id, decimal.NewFromInt(1000))
			},
			want: repository.StatusApproved,
		},
		{
			name: "approve suspended",
			from: repository.StatusSuspended,
			action: func(s *AccountService, id string) (repository.Account, error) {
				return s.ApproveDoctor(ctx, adminActor, id, decimal.Zero)
			},
			want: repository.StatusApproved,
		},
		{
			name: "approve rejected",
			from: repository.StatusRejected,
			action: func(s *AccountService, id string) (repository.Account, error) {
				return s.ApproveDoctor(ctx, adminActor, id, decimal.Zero)
			},
			wantErr: ErrInvalidStateTransition,
		},
		{
			name: "reject approved",
			from: repository.StatusApproved,
			action: func(s *AccountService, id string) (repository.Account, error) {
				return s.RejectDoctor(ctx, adminActor, id, "late")
			},
			wantErr: ErrInvalidStateTransition,
		},
		{
			name: "suspend approved",
			from: repository.StatusApproved,
			action: func(s *AccountService, id string) (repository.Account, error) {
				return s.SuspendDoctor(ctx, adminActor, id)
			},
			want: repository.StatusSuspended,
		},
		{
			name: "suspend pending",
			from: repository.StatusPending,
			action: func(s *AccountService, id string) (repository.Account, error) {
				return s.SuspendDoctor(ctx, adminActor, id)
			},
			wantErr: ErrInvalidStateTransition,
		},
		{
			name: "doctor cannot moderate",
			from: repository.StatusPending,
			action: func(s *AccountService, id string) (repository.Account, error) {
				return s.ApproveDoctor(ctx, Actor{ID: id, Role: repository.RoleDoctor}, id, decimal.Zero)
			},
			wantErr: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			acc := repository.Account{
				ID:       "doc-1",
				Email:    "doc@clinic.in",
				Role:     repository.RoleDoctor,
				Status:   tt.from,
				FullName: "Dr. Test",
				Phone:    "+919800000001",
			}
			require.NoError(t, f.store.Accounts().Create(ctx, acc))

			got, err := tt.action(f.accounts, acc.ID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				stored, err := f.store.Accounts().GetByID(ctx, acc.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.from, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
		})
	}
}

func TestAccountService_ApproveSetsLimitAndEmitsEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 2500)

	assert.Equal(t, "2500.00", doc.CreditLimit.StringFixed(2))
	require.NotNil(t, doc.ApprovedAt)
	assert.Equal(t, adminActor.ID, doc.ApprovedBy)
	assert.Len(t, f.outboxEvents(t, events.DoctorApproved), 1)

	_, err := f.accounts.SetCreditLimit(ctx, adminActor, doc.ID, decimal.NewFromInt(-1))
	assert.True(t, IsValidation(err))

	updated, err := f.accounts.SetCreditLimit(ctx, adminActor, doc.ID, decimal.RequireFromString("999.999"))
	require.NoError(t, err)
	assert.Equal(t, "1000.00", updated.CreditLimit.StringFixed(2))

	// админа нельзя модерировать как врача
	admin, err := f.accounts.CreateAdmin(ctx, CreateAdminInput{Email: "ops@upkar.in", Password: "admin-pass", FullName: "Ops"})
	require.NoError(t, err)
	_, err = f.accounts.SuspendDoctor(ctx, adminActor, admin.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountService_ListDoctorsAndGetAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc := f.doctor(t, "rao@clinic.in", 0)
	_, err := f.accounts.Register(ctx, RegisterInput{
		Email: "new@clinic.in", Password: "s3cret-pass", FullName: "Dr. New", Phone: "+919800000002", LicenseNumber: "MCI-2",
	})
	require.NoError(t, err)
	_, err = f.accounts.CreateAdmin(ctx, CreateAdminInput{Email: "ops@upkar.in", Password: "admin-pass", FullName: "Ops"})
	require.NoError(t, err)

	pending, err := f.accounts.ListDoctors(ctx, adminActor, repository.StatusPending, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "new@clinic.in", pending[0].Email)

	all, err := f.accounts.ListDoctors(ctx, adminActor, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.accounts.ListDoctors(ctx, adminActor, "banned", 0, 0)
	assert.True(t, IsValidation(err))
	_, err = f.accounts.ListDoctors(ctx, doctorActor(doc), "", 0, 0)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.accounts.GetAccount(ctx, doctorActor(doc), pending[0].ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	me, err := f.accounts.GetAccount(ctx, doctorActor(doc), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Email, me.Email)
}

func TestAccountService_CreateAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	admin, err := f.accounts.CreateAdmin(ctx, CreateAdminInput{Email: "Ops@Upkar.in", Password: "admin-pass", FullName: "Ops"})
	require.NoError(t, err)
	assert.Equal(t, repository.RoleAdmin, admin.Role)
	assert.Equal(t, repository.StatusApproved, admin.Status)

	_, err = f.accounts.CreateAdmin(ctx, CreateAdminInput{Email: "ops@upkar.in", Password: "admin-pass", FullName: "Ops"})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)

	_, err = f.accounts.CreateAdmin(ctx, CreateAdminInput{Email: "x@upkar.in", Password: "short", FullName: "X"})
	assert.True(t, IsValidation(err))

	out, err := f.accounts.Login(ctx, "ops@upkar.in", "admin-pass")
	require.NoError(t, err)
	assert.True(t, Actor{ID: out.Account.ID, Role: out.Account.Role}.IsAdmin())
}
