package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"myfleet/internal/apperr"
)

type OTPConfig struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
	// HashCost is the bcrypt cost for stored codes; zero means bcrypt.DefaultCost.
	HashCost int
}

// SMSSender delivers a text message to a 10-digit phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// OTPStore issues and checks one-time codes. Codes are kept in Redis as
// bcrypt hashes next to an attempts counter and a resend marker.
type OTPStore struct {
	rdb    *redis.Client
	sender SMSSender
	cfg    OTPConfig
}

func NewOTPStore(rdb *redis.Client, sender SMSSender, cfg OTPConfig) *OTPStore {
	if cfg.Length == 0 {
		cfg.Length = 6
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &OTPStore{rdb: rdb, sender: sender, cfg: cfg}
}

func otpKey(phone string) string      { return fmt.Sprintf("otp:%s", phone) }
func attemptsKey(phone string) string { return fmt.Sprintf("otp:att:%s", phone) }
func resendKey(phone string) string   { return fmt.Sprintf("otp:res:%s", phone) }

// Issue sends a fresh code unless one was sent inside the resend window, in
// which case the outstanding code stays valid and only the wait is returned.
func (o *OTPStore) Issue(ctx context.Context, phone string) (retryAfter time.Duration, sent bool, err error) {
	wait, err := o.rdb.TTL(ctx, resendKey(phone)).Result()
	if err != nil {
		return 0, false, apperr.Wrap("send code", err)
	}
	if wait > 0 {
		pending, err := o.rdb.Exists(ctx, otpKey(phone)).Result()
		if err != nil {
			return 0, false, apperr.Wrap("send code", err)
		}
		if pending == 1 {
			return wait, false, nil
		}
	}

	code, err := o.generateSecureCode()
	if err != nil {
		return 0, false, apperr.Wrap("send code", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), o.cfg.HashCost)
	if err != nil {
		return 0, false, apperr.Wrap("send code", err)
	}

	_, err = o.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, otpKey(phone), hash, o.cfg.TTL)
		p.Set(ctx, attemptsKey(phone), 0, o.cfg.TTL)
		p.Set(ctx, resendKey(phone), 1, o.cfg.ResendWindow)
		return nil
	})
	if err != nil {
		return 0, false, apperr.Wrap("send code", err)
	}

	msg := fmt.Sprintf("Your MyFleet verification code is %s. It expires in %d minutes.", code, int(o.cfg.TTL.Minutes()))
	if err := o.sender.SendSMS(ctx, phone, msg); err != nil {
		o.rdb.Del(ctx, otpKey(phone), attemptsKey(phone), resendKey(phone))
		logrus.WithError(err).WithField("phone", phone).Error("OTP SMS delivery failed")
		return 0, false, apperr.Collaborator("send code", err)
	}
	return o.cfg.ResendWindow, true, nil
}

// Pending reports whether an unexpired code exists for phone.
func (o *OTPStore) Pending(ctx context.Context, phone string) (bool, error) {
	n, err := o.rdb.Exists(ctx, otpKey(phone)).Result()
	if err != nil {
		return false, apperr.Wrap("check code", err)
	}
	return n == 1, nil
}

// Claim is a matched code taken out of Redis while the login completes.
// Commit finishes it; Release puts the code back for another try.
type Claim struct {
	phone string
	hash  []byte
	ttl   time.Duration
}

// Verify takes the code out on a match. Each call counts as an attempt and
// the code is discarded once the attempts run out.
func (o *OTPStore) Verify(ctx context.Context, phone, code string) (*Claim, error) {
	hash, err := o.rdb.Get(ctx, otpKey(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrOTPInvalid
	}
	if err != nil {
		return nil, apperr.Wrap("verify code", err)
	}

	attempts, err := o.rdb.Incr(ctx, attemptsKey(phone)).Result()
	if err != nil {
		return nil, apperr.Wrap("verify code", err)
	}
	if attempts > int64(o.cfg.MaxAttempts) {
		o.rdb.Del(ctx, otpKey(phone), attemptsKey(phone))
		return nil, apperr.ErrOTPMaxAttempts
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(code)); err != nil {
		return nil, apperr.ErrOTPInvalid
	}

	ttl, err := o.rdb.PTTL(ctx, otpKey(phone)).Result()
	if err != nil {
		return nil, apperr.Wrap("verify code", err)
	}
	// n == 0 means a concurrent request claimed the code first.
	n, err := o.rdb.Del(ctx, otpKey(phone)).Result()
	if err != nil {
		return nil, apperr.Wrap("verify code", err)
	}
	if n == 0 {
		return nil, apperr.ErrOTPInvalid
	}
	return &Claim{phone: phone, hash: hash, ttl: ttl}, nil
}

// Commit clears the attempts counter and resend marker of a used code.
func (o *OTPStore) Commit(ctx context.Context, c *Claim) {
	if err := o.rdb.Del(ctx, attemptsKey(c.phone), resendKey(c.phone)).Err(); err != nil {
		logrus.WithError(err).WithField("phone", c.phone).Warn("OTP bookkeeping keys not cleared")
	}
}

// Release restores a claimed code with its remaining lifetime. A code issued
// in the meantime wins.
func (o *OTPStore) Release(ctx context.Context, c *Claim) error {
	if c.ttl <= 0 {
		return nil
	}
	if err := o.rdb.SetNX(ctx, otpKey(c.phone), c.hash, c.ttl).Err(); err != nil {
		return apperr.Wrap("restore code", err)
	}
	return nil
}

// generateSecureCode generates a cryptographically secure numeric code
func (o *OTPStore) generateSecureCode() (string, error) {
	digits := make([]byte, o.cfg.Length)
	for i := range digits {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}
	return string(digits), nil
}
