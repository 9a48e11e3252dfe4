package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	BucketAttachments = "ticket-attachments"
	BucketBackgrounds = "customer-backgrounds"
)

var (
	ErrUnknownBucket = errors.New("unknown bucket")
	ErrTooLarge      = errors.New("file too large")
	ErrBadType       = errors.New("file type not allowed")
)

type Bucket struct {
	Name     string
	MaxBytes int64
	// Allowed MIME prefixes or exact types.
	Allowed []string
}

func DefaultBuckets() map[string]Bucket {
	return map[string]Bucket{
		BucketAttachments: {
			Name:     BucketAttachments,
			MaxBytes: 50 << 20,
			Allowed:  []string{"image/", "video/", "audio/", "application/pdf"},
		},
		BucketBackgrounds: {
			Name:     BucketBackgrounds,
			MaxBytes: 10 << 20,
			Allowed:  []string{"image/"},
		},
	}
}

func (b Bucket) allows(mime string) bool {
	for _, a := range b.Allowed {
		if strings.HasSuffix(a, "/") && strings.HasPrefix(mime, a) {
			return true
		}
		if mime == a {
			return true
		}
	}
	return false
}

// Object is a stored file.
type Object struct {
	Bucket    string `json:"bucket"`
	Path      string `json:"path"`
	MIME      string `json:"mime"`
	Size      int64  `json:"size"`
	PublicURL string `json:"public_url"`
}

// Local stores bucket objects under Dir and serves them at PublicBase/storage.
type Local struct {
	Dir        string
	PublicBase string
	Buckets    map[string]Bucket
}

func NewLocal(dir, publicBase string) (*Local, error) {
	l := &Local{Dir: dir, PublicBase: strings.TrimRight(publicBase, "/"), Buckets: DefaultBuckets()}
	for name := range l.Buckets {
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Upload sniffs the content type, enforces the bucket limits and writes the
// object under <owner>/<uuid><ext>.
func (l *Local) Upload(bucket, owner string, r io.Reader) (Object, error) {
	b, ok := l.Buckets[bucket]
	if !ok {
		return Object{}, ErrUnknownBucket
	}
	data, err := io.ReadAll(io.LimitReader(r, b.MaxBytes+1))
	if err != nil {
		return Object{}, err
	}
	if int64(len(data)) > b.MaxBytes {
		return Object{}, fmt.Errorf("%w: limit is %d MB", ErrTooLarge, b.MaxBytes>>20)
	}
	mt := mimetype.Detect(data)
	mime := strings.SplitN(mt.String(), ";", 2)[0]
	if !b.allows(mime) {
		return Object{}, fmt.Errorf("%w: %s", ErrBadType, mime)
	}

	owner = sanitize(owner)
	name := uuid.NewString() + mt.Extension()
	rel := path.Join(owner, name)
	full := filepath.Join(l.Dir, bucket, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return Object{}, err
	}
	return Object{
		Bucket:    bucket,
		Path:      rel,
		MIME:      mime,
		Size:      int64(len(data)),
		PublicURL: l.PublicURL(bucket, rel),
	}, nil
}

func (l *Local) PublicURL(bucket, rel string) string {
	return l.PublicBase + "/storage/" + bucket + "/" + rel
}

// MessageType maps a MIME type to the chat message type for attachments.
func MessageType(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	default:
		return "file"
	}
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	var b bytes.Buffer
	for _, r := range s {
		if r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "anonymous"
	}
	return b.String()
}
