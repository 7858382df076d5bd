// Package checksum verifies downloaded archives against their '.sha256' sidecar files.
package checksum

import (
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"

	"github.com/gnatfetch/gnatfetch/internal/logger"
)

var (
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrMalformedChecksum   = errors.New("malformed checksum file")
	ErrHashToolUnavailable = errors.New("sha256 hashing unavailable")
)

type Result int

const (
	ResultVerified Result = iota
	ResultSkipped
)

func (r Result) String() string {
	if r == ResultSkipped {
		return "skipped"
	}
	return "verified"
}

// MismatchError reports the digests that were compared when verification fails.
type MismatchError struct {
	File     string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s for %q: expected %s, got %s", ErrChecksumMismatch, e.File, e.Expected, e.Actual)
}

func (e *MismatchError) Is(target error) bool { return target == ErrChecksumMismatch }

type Verifier struct {
	log     *zap.Logger
	storage billy.Filesystem

	available func() bool
}

// NewVerifier reads files from the given filesystem, or from the host's if nil.
func NewVerifier(logBuilder *logger.Builder, fs billy.Filesystem) *Verifier {
	if fs == nil {
		fs = osfs.New("/")
	}
	return &Verifier{
		log:       logBuilder.Domain(logger.VerifyDomain),
		storage:   fs,
		available: crypto.SHA256.Available,
	}
}

// Verify compares the SHA-256 digest of filePath with the one recorded in checksumFilePath. The
// sidecar may carry a trailing filename as written by 'sha256sum'; only its first token is used.
func (v *Verifier) Verify(filePath string, checksumFilePath string) (Result, error) {
	log := v.log.With(zap.String("file", filePath), zap.String("checksum-file", checksumFilePath))

	if !v.available() {
		log.Warn("Skipping checksum verification.", zap.Error(ErrHashToolUnavailable))
		return ResultSkipped, nil
	}

	raw, err := util.ReadFile(v.storage, checksumFilePath)
	if err != nil {
		log.Error("Unable to read checksum file.", zap.Error(err))
		return ResultVerified, err
	}
	expected, err := parseSidecar(raw)
	if err != nil {
		log.Error("Invalid checksum file.", zap.Error(err))
		return ResultVerified, fmt.Errorf("%q: %w", checksumFilePath, err)
	}

	actual, err := v.digest(filePath)
	if err != nil {
		log.Error("Unable to hash file.", zap.Error(err))
		return ResultVerified, err
	}

	if actual != expected {
		log.Error("Checksum does not match.", zap.String("expected", expected), zap.String("actual", actual))
		return ResultVerified, &MismatchError{File: filePath, Expected: expected, Actual: actual}
	}
	log.Debug("Checksum verified.", zap.String("sha256", actual))
	return ResultVerified, nil
}

func (v *Verifier) digest(filePath string) (string, error) {
	fd, err := v.storage.Open(filePath)
	if err != nil {
		return "", err
	}
	defer fd.Close()

	h := sha256.New()
	if _, err = io.Copy(h, fd); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func parseSidecar(raw []byte) (string, error) {
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: no digest found", ErrMalformedChecksum)
	}
	d := strings.ToLower(fields[0])
	if len(d) != sha256.Size*2 {
		return "", fmt.Errorf("%w: %q is not a sha256 digest", ErrMalformedChecksum, fields[0])
	}
	if _, err := hex.DecodeString(d); err != nil {
		return "", fmt.Errorf("%w: %q is not hexadecimal", ErrMalformedChecksum, fields[0])
	}
	return d, nil
}
