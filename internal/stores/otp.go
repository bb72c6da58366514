package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrOTPNotFound         = errors.New("otp record not found")
	ErrOTPRedisUnavailable = errors.New("otp redis unavailable")
)

const (
	otpFieldCode      = "code"
	otpFieldAttempts  = "attempts"
	otpFieldMax       = "max"
	otpFieldConsumed  = "consumed"
	otpFieldCreatedAt = "createdAt"
)

// verifyOTPLua runs the whole verification in one script so that
// concurrent guesses are serialized against the attempt budget.
// KEYS[1] = record key
// ARGV[1] = submitted code
// ARGV[2] = fallback max attempts (int string)
//
// Returns 1 when consumed, 0 on mismatch (attempts bumped), -1 when the
// budget is exhausted, -2 when absent, -3 when flagged consumed.
var verifyOTPLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -2
end
local f = redis.call('HMGET', KEYS[1], 'code', 'attempts', 'max', 'consumed')
if f[4] == '1' then
  return -3
end
local attempts = tonumber(f[2] or '0') or 0
local maxAttempts = tonumber(f[3] or '') or 0
if maxAttempts <= 0 then
  maxAttempts = tonumber(ARGV[2])
end
if attempts >= maxAttempts then
  return -1
end
if not f[1] or f[1] == '' then
  return -2
end
if f[1] ~= ARGV[1] then
  redis.call('HINCRBY', KEYS[1], 'attempts', 1)
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// OTPRecord is the decoded form of an OTP hash.
// MaxAttempts is zero when the stored field is missing or malformed.
type OTPRecord struct {
	Code        string
	Attempts    int
	MaxAttempts int
	Consumed    bool
	CreatedAt   int64
}

// OTPStore persists one OTP hash per (purpose, email) pair.
type OTPStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewOTPStore(redisClient redis.UniversalClient, prefix string) *OTPStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &OTPStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Key returns the Redis key for purpose and email. Email is lower-cased.
func (s *OTPStore) Key(purpose, email string) string {
	return s.prefix + ":" + purpose + ":" + strings.ToLower(email)
}

// Save overwrites any existing record in a single MULTI block.
// A non-positive ttl leaves the key without expiry.
func (s *OTPStore) Save(ctx context.Context, purpose, email string, record *OTPRecord, ttl time.Duration) error {
	key := s.Key(purpose, email)
	consumed := "0"
	if record.Consumed {
		consumed = "1"
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			otpFieldCode, record.Code,
			otpFieldAttempts, strconv.Itoa(record.Attempts),
			otpFieldMax, strconv.Itoa(record.MaxAttempts),
			otpFieldConsumed, consumed,
			otpFieldCreatedAt, strconv.FormatInt(record.CreatedAt, 10),
		)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	return nil
}

// Load reads the record. It returns ErrOTPNotFound when the key is absent.
func (s *OTPStore) Load(ctx context.Context, purpose, email string) (*OTPRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.Key(purpose, email)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrOTPNotFound
	}
	return decodeOTPFields(fields), nil
}

// TTL returns the remaining lifetime. It is -1 for a key without expiry
// and -2 for a missing key, mirroring Redis.
func (s *OTPStore) TTL(ctx context.Context, purpose, email string) (time.Duration, error) {
	ttl, err := s.redis.TTL(ctx, s.Key(purpose, email)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	return ttl, nil
}

// VerifyResult is the outcome of Verify.
type VerifyResult int

const (
	VerifyMismatch VerifyResult = iota
	VerifyOK
	VerifyExhausted
	VerifyNotFound
	VerifyConsumed
)

// Verify checks code against the record and applies the outcome in the same
// script: a mismatch bumps the attempt counter, a match deletes the record.
// Only one of several concurrent callers can observe VerifyOK, and no more
// than the budget of mismatches is ever evaluated.
func (s *OTPStore) Verify(ctx context.Context, purpose, email, code string, fallbackMax int) (VerifyResult, error) {
	n, err := verifyOTPLua.Run(ctx, s.redis,
		[]string{s.Key(purpose, email)},
		code,
		fallbackMax,
	).Int64()
	if err != nil {
		return VerifyMismatch, fmt.Errorf("%w: %v", ErrOTPRedisUnavailable, err)
	}
	switch n {
	case 1:
		return VerifyOK, nil
	case -1:
		return VerifyExhausted, nil
	case -2:
		return VerifyNotFound, nil
	case -3:
		return VerifyConsumed, nil
	default:
		return VerifyMismatch, nil
	}
}

func decodeOTPFields(fields map[string]string) *OTPRecord {
	record := &OTPRecord{
		Code:     fields[otpFieldCode],
		Consumed: fields[otpFieldConsumed] == "1",
	}
	if v, err := strconv.Atoi(fields[otpFieldAttempts]); err == nil {
		record.Attempts = v
	}
	if v, err := strconv.Atoi(fields[otpFieldMax]); err == nil {
		record.MaxAttempts = v
	}
	if v, err := strconv.ParseInt(fields[otpFieldCreatedAt], 10, 64); err == nil {
		record.CreatedAt = v
	}
	return record
}
