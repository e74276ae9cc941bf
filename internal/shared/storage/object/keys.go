package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/util"
)

// Namespace is the top-level folder statements are stored under.
const Namespace = "statements"

const ownerHashLen = 16

var (
	ErrMissingOwner = errors.New("object owner is required")
	ErrInvalidKey   = errors.New("invalid storage key")
)

// NewKey returns statements/<owner hash>/<yyyy>/<mm>/<random>_<name>.
func NewKey(owner, fileName string, now time.Time) (string, error) {
	if strings.TrimSpace(owner) == "" {
		return "", ErrMissingOwner
	}
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	ownerDir := util.HashOwnerKey(owner)[:ownerHashLen]
	return path.Join(Namespace, ownerDir, now.UTC().Format("2006/01"), uuid.NewString()+"_"+name), nil
}

// CheckKey rejects keys that escape Namespace.
func CheckKey(key string) error {
	clean := path.Clean(strings.TrimSpace(key))
	if clean != key || !strings.HasPrefix(clean, Namespace+"/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Sniff detects the content type from the first 512 bytes and returns a reader
// that replays them before the rest of r.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	return http.DetectContentType(head[:n]), io.MultiReader(bytes.NewReader(head[:n]), r), nil
}
