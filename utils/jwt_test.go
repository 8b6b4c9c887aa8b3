package utils

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Morgoth-Ryuk/hw05-final/config"
)

func useTestConfig(t *testing.T) {
	t.Helper()
	config.Set(config.AppConfig{JWTSecret: "unit-test-secret"})
	UseRedis(nil)
}

func TestTokenRoundTrip(t *testing.T) {
	useTestConfig(t)

	token, expires, err := GenerateToken(7, "leo", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("expiry should be in the future")
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "leo" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestTokenRejected(t *testing.T) {
	useTestConfig(t)

	expired, _, err := GenerateToken(1, "a", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(expired); err == nil {
		t.Errorf("expired token accepted")
	}

	valid, _, _ := GenerateToken(1, "a", time.Hour)
	config.Set(config.AppConfig{JWTSecret: "another-secret"})
	if _, err := ParseToken(valid); err == nil {
		t.Errorf("token signed with another secret accepted")
	}

	if _, err := ParseToken("not-a-token"); err == nil {
		t.Errorf("garbage accepted")
	}
}

func TestBlacklistedTokenRejected(t *testing.T) {
	useTestConfig(t)

	token, expires, _ := GenerateToken(3, "c", time.Hour)
	BlacklistToken(token, expires)
	if !IsTokenBlacklisted(token) {
		t.Fatalf("token should be revoked")
	}
	if _, err := ParseToken(token); err == nil {
		t.Fatalf("revoked token accepted")
	}
}

func TestBlacklistUsesRedis(t *testing.T) {
	useTestConfig(t)
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()
	UseRedis(rc)
	defer UseRedis(nil)

	BlacklistToken("tok", time.Now().Add(time.Minute))
	if !mr.Exists(blacklistPrefix + "tok") {
		t.Fatalf("revocation should be stored in redis")
	}
	if !IsTokenBlacklisted("tok") {
		t.Errorf("token should be reported as revoked")
	}
	mr.FastForward(2 * time.Minute)
	if IsTokenBlacklisted("tok") {
		t.Errorf("revocation should expire with the token")
	}
}

func TestOAuthStateIsSingleUse(t *testing.T) {
	useTestConfig(t)

	SaveState("abc", time.Minute)
	if !ConsumeState("abc") {
		t.Fatalf("fresh state rejected")
	}
	if ConsumeState("abc") {
		t.Fatalf("state accepted twice")
	}
	if ConsumeState("") || ConsumeState("unknown") {
		t.Fatalf("unknown state accepted")
	}

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()
	UseRedis(rc)
	defer UseRedis(nil)

	SaveState("xyz", time.Minute)
	if !ConsumeState("xyz") || ConsumeState("xyz") {
		t.Fatalf("redis state must be single use")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Errorf("correct password rejected")
	}
	if CheckPassword(hash, "wrong") || CheckPassword("", "") {
		t.Errorf("wrong password accepted")
	}
}
