package token

import (
	"testing"
	"time"

	"github.com/trezcool/shule/core"
)

func TestIssue(t *testing.T) {
	raw1, hash1, err := Issue()
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	raw2, hash2, err := Issue()
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	if raw1 == raw2 {
		t.Error("Issue() returned the same raw token twice")
	}
	if hash1 == hash2 {
		t.Error("Issue() returned the same hash twice")
	}
	if raw1 == hash1 {
		t.Error("raw token and hash must differ")
	}
	if len(raw1) < 43 { // 32 bytes base64url-encoded without padding
		t.Errorf("raw token too short: %d chars", len(raw1))
	}
	if Hash(raw1) != hash1 {
		t.Error("Hash(raw) does not match issued hash")
	}
	if Hash(raw2) == hash1 {
		t.Error("Hash(raw2) must not match hash1")
	}
}

func TestPurposeTTL(t *testing.T) {
	conf := &core.Config{
		AccountInviteTimeoutDelta:     24 * time.Hour,
		PasswordResetTimeoutDelta:     10 * time.Minute,
		EmailVerificationTimeoutDelta: time.Hour,
	}

	tests := []struct {
		purpose Purpose
		want    time.Duration
	}{
		{PurposeAccountInvite, 24 * time.Hour},
		{PurposePasswordReset, 10 * time.Minute},
		{PurposeEmailVerification, time.Hour},
	}
	for _, tt := range tests {
		t.Run(string(tt.purpose), func(t *testing.T) {
			if got := tt.purpose.TTL(conf); got != tt.want {
				t.Errorf("TTL() = %v, want %v", got, tt.want)
			}
		})
	}
}
