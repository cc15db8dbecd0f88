package credential

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"

	"hrcore.io/internal/obs"
)

// Params fixes the argon2id cost at deployment. Verification always uses the
// parameters embedded in the stored hash, so tightening these later keeps old
// hashes verifiable.
type Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams target roughly a hundred milliseconds per hash on server
// hardware. Slowness here is a brute-force deterrent, not a defect.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Time:        3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

const defaultMaxConcurrent = 4

// Service hashes and verifies password credentials. Hash computations go
// through a bounded pool so a login burst cannot exhaust memory.
type Service struct {
	params Params
	pool   *semaphore.Weighted
}

// Option configures Service behavior.
type Option func(*Service)

// WithParams overrides the hashing cost (tests use cheap parameters).
func WithParams(p Params) Option {
	return func(s *Service) {
		if p.Memory > 0 && p.Time > 0 && p.Parallelism > 0 && p.SaltLength > 0 && p.KeyLength > 0 {
			s.params = p
		}
	}
}

// WithMaxConcurrent bounds how many hash computations may run at once.
func WithMaxConcurrent(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pool = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewService constructs a Service with deployment-fixed parameters.
func NewService(opts ...Option) *Service {
	s := &Service{
		params: DefaultParams,
		pool:   semaphore.NewWeighted(defaultMaxConcurrent),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hash derives a salted argon2id hash in PHC string format. The output embeds
// the parameters and salt, so future parameter changes stay backward
// compatible for verification.
func (s *Service) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", errors.New("credential: password is empty")
	}
	if err := s.pool.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.pool.Release(1)

	salt := make([]byte, s.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("credential: generate salt: %w", err)
	}

	start := time.Now()
	key := argon2.IDKey([]byte(password), salt, s.params.Time, s.params.Memory, s.params.Parallelism, s.params.KeyLength)
	obs.ObserveHash(time.Since(start))

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.params.Memory,
		s.params.Time,
		s.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches the stored PHC hash. Malformed
// hashes and mismatches both return false; the caller must not learn whether
// the stored record or the input was at fault.
func (s *Service) Verify(ctx context.Context, encoded, password string) bool {
	params, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	if err := s.pool.Acquire(ctx, 1); err != nil {
		return false
	}
	defer s.pool.Release(1)

	start := time.Now()
	candidate := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Parallelism, uint32(len(key)))
	obs.ObserveHash(time.Since(start))

	return subtle.ConstantTimeCompare(candidate, key) == 1
}

func decodeHash(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, errors.New("credential: malformed hash")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, errors.New("credential: unsupported version")
	}
	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil {
		return Params{}, nil, nil, errors.New("credential: malformed parameters")
	}
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return Params{}, nil, nil, errors.New("credential: malformed parameters")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, errors.New("credential: malformed salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, errors.New("credential: malformed key")
	}
	return p, salt, key, nil
}
