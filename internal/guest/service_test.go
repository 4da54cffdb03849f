package guest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatepass/gatepass/internal/pass"
	"github.com/gatepass/gatepass/internal/shared"
	"github.com/gatepass/gatepass/internal/token"
)

type stubRepo struct {
	inviter   *pass.Credential
	created   []pass.Credential
	createErr error
}

func (s *stubRepo) ActiveInvitingCredential(ctx context.Context, userID string) (*pass.Credential, error) {
	if s.inviter == nil {
		return nil, shared.ErrNotFound
	}
	return s.inviter, nil
}

func (s *stubRepo) CreateCredential(ctx context.Context, c pass.Credential) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, c)
	return nil
}

var issueNow = time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)

func newTestService(repo *stubRepo) (*Service, *token.Codec) {
	codec, _ := token.New("guest-secret")
	codec.WithClock(func() time.Time { return issueNow })
	svc := NewService(repo, codec, "https://pass.example.com/")
	svc.WithClock(func() time.Time { return issueNow })
	return svc, codec
}

func TestIssueMintsGuestCredentialAndToken(t *testing.T) {
	repo := &stubRepo{inviter: &pass.Credential{ID: "crd-owner", OrgID: "org-1", Type: pass.TypeResident}}
	svc, codec := newTestService(repo)

	validFrom := issueNow
	validTo := issueNow.Add(48 * time.Hour)
	issued, err := svc.Issue(context.Background(), shared.IdentityCaller{UserID: "user-1"}, IssueInput{
		GuestName: "Ana Visitor",
		ValidFrom: validFrom,
		ValidTo:   validTo,
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)

	created := repo.created[0]
	require.Equal(t, issued.CredentialID, created.ID)
	require.Equal(t, "org-1", created.OrgID)
	require.Equal(t, pass.TypeGuest, created.Type)
	require.Equal(t, pass.StatusActive, created.Status)
	require.Empty(t, created.UserID, "guest credentials have no owning user")
	require.Equal(t, "user-1", created.CreatedBy)
	require.Contains(t, issued.GuestURL, "https://pass.example.com/g?token=")

	claims, err := codec.Verify(issued.GuestToken)
	require.NoError(t, err)
	require.Equal(t, token.TypGuest, claims.Typ)
	require.Equal(t, "org-1", claims.OrgID)
	require.Equal(t, created.ID, claims.CredentialID)
	require.Equal(t, validTo.Add(TokenGrace).Unix(), claims.ExpiresAt, "token outlives window by the grace period")
}

func TestIssueRejectsBadWindows(t *testing.T) {
	repo := &stubRepo{inviter: &pass.Credential{ID: "crd-owner", OrgID: "org-1"}}
	svc, _ := newTestService(repo)
	caller := shared.IdentityCaller{UserID: "user-1"}

	cases := []struct {
		name string
		in   IssueInput
	}{
		{"missing name", IssueInput{ValidFrom: issueNow, ValidTo: issueNow.Add(time.Hour)}},
		{"reversed window", IssueInput{GuestName: "g", ValidFrom: issueNow.Add(time.Hour), ValidTo: issueNow}},
		{"zero-length window", IssueInput{GuestName: "g", ValidFrom: issueNow, ValidTo: issueNow}},
		{"eight day window", IssueInput{GuestName: "g", ValidFrom: issueNow, ValidTo: issueNow.Add(8 * 24 * time.Hour)}},
		{"zero from", IssueInput{GuestName: "g", ValidTo: issueNow.Add(time.Hour)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Issue(context.Background(), caller, tc.in)
			require.ErrorIs(t, err, shared.ErrValidation)
			require.Empty(t, repo.created)
		})
	}
}

func TestIssueExactSevenDayWindowAllowed(t *testing.T) {
	repo := &stubRepo{inviter: &pass.Credential{ID: "crd-owner", OrgID: "org-1"}}
	svc, _ := newTestService(repo)
	_, err := svc.Issue(context.Background(), shared.IdentityCaller{UserID: "user-1"}, IssueInput{
		GuestName: "g",
		ValidFrom: issueNow,
		ValidTo:   issueNow.Add(MaxWindow),
	})
	require.NoError(t, err)
}

func TestIssueRequiresInvitingCredential(t *testing.T) {
	svc, _ := newTestService(&stubRepo{})
	_, err := svc.Issue(context.Background(), shared.IdentityCaller{UserID: "user-1"}, IssueInput{
		GuestName: "g",
		ValidFrom: issueNow,
		ValidTo:   issueNow.Add(time.Hour),
	})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestIssueSurfacesStorageFailure(t *testing.T) {
	repo := &stubRepo{
		inviter:   &pass.Credential{ID: "crd-owner", OrgID: "org-1"},
		createErr: errors.New("connection reset"),
	}
	svc, _ := newTestService(repo)
	_, err := svc.Issue(context.Background(), shared.IdentityCaller{UserID: "user-1"}, IssueInput{
		GuestName: "g",
		ValidFrom: issueNow,
		ValidTo:   issueNow.Add(time.Hour),
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, shared.ErrValidation)
	require.NotErrorIs(t, err, shared.ErrForbidden)
}
