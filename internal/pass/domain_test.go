package pass

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)

func activeCredential() Credential {
	return Credential{
		ID:        "crd-1",
		OrgID:     "org-1",
		Type:      TypeResident,
		Status:    StatusActive,
		ValidFrom: testNow.Add(-24 * time.Hour),
		ValidTo:   testNow.Add(24 * time.Hour),
	}
}

func TestEligibility(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Credential)
		want   Reason
	}{
		{"active in window", func(c *Credential) {}, ReasonOK},
		{"suspended", func(c *Credential) { c.Status = StatusSuspended }, ReasonSuspended},
		{"inactive", func(c *Credential) { c.Status = StatusInactive }, ReasonInactive},
		{"unknown status", func(c *Credential) { c.Status = "archived" }, ReasonInactive},
		{"not yet valid", func(c *Credential) { c.ValidFrom = testNow.Add(time.Hour) }, ReasonNotYetValid},
		{"expired", func(c *Credential) { c.ValidTo = testNow.Add(-time.Hour) }, ReasonExpired},
		{"zero valid_to", func(c *Credential) { c.ValidTo = time.Time{} }, ReasonExpired},
		{"zero valid_from", func(c *Credential) { c.ValidFrom = time.Time{} }, ReasonExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := activeCredential()
			tc.mutate(&c)
			require.Equal(t, tc.want, c.Eligibility(testNow))
		})
	}
}

func TestEligibilityStatusWinsOverWindow(t *testing.T) {
	c := activeCredential()
	c.Status = StatusSuspended
	c.ValidTo = testNow.Add(-time.Hour)
	require.Equal(t, ReasonSuspended, c.Eligibility(testNow))
}

func TestHasLiveCode(t *testing.T) {
	c := activeCredential()
	require.False(t, c.HasLiveCode(testNow))

	c.CurrentCode = "0427"
	c.CurrentCodeExpiresAt = testNow.Add(10 * time.Second)
	require.True(t, c.HasLiveCode(testNow))

	c.CurrentCodeExpiresAt = testNow
	require.False(t, c.HasLiveCode(testNow), "expiry at now is not live")

	c.CurrentCode = "42"
	c.CurrentCodeExpiresAt = testNow.Add(10 * time.Second)
	require.False(t, c.HasLiveCode(testNow), "malformed code is not live")
}

func TestValidCode(t *testing.T) {
	require.True(t, ValidCode("0000"))
	require.True(t, ValidCode("9999"))
	for _, code := range []string{"", "123", "12345", "12a4", " 1234"} {
		require.False(t, ValidCode(code), "code %q", code)
	}
}

func TestCheckpointAllows(t *testing.T) {
	cp := Checkpoint{}
	require.True(t, cp.Allows(TypeGuest), "empty allow-list is a wildcard")

	cp.AllowedTypes = []CredentialType{TypeResident, TypeMember}
	require.True(t, cp.Allows(TypeMember))
	require.False(t, cp.Allows(TypeGuest))
}

func TestStaffDeviceApproved(t *testing.T) {
	s := Staff{}
	require.True(t, s.DeviceApproved("anything"))

	s.ApprovedDeviceIDs = []string{"dev-1"}
	require.True(t, s.DeviceApproved("dev-1"))
	require.False(t, s.DeviceApproved("dev-2"))
	require.False(t, s.DeviceApproved(""))
}

func TestOrgRotationSecondsClamp(t *testing.T) {
	require.Equal(t, 30, Org{}.RotationSeconds())
	require.Equal(t, 20, Org{CodeRotationSeconds: 5}.RotationSeconds())
	require.Equal(t, 60, Org{CodeRotationSeconds: 600}.RotationSeconds())
	require.Equal(t, 45, Org{CodeRotationSeconds: 45}.RotationSeconds())
}

func TestSummarizeOmitsRotationState(t *testing.T) {
	c := activeCredential()
	c.DisplayName = "Unit 4B"
	c.CurrentCode = "1234"
	s := c.Summarize()
	require.Equal(t, "crd-1", s.CredentialID)
	require.Equal(t, "Unit 4B", s.DisplayName)
	require.Equal(t, TypeResident, s.Type)
}
