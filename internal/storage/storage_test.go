package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestUploadImage(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "https://cdn.example.com/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	obj, err := l.Upload(BucketBackgrounds, "user-1", bytes.NewReader(tinyPNG))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if obj.MIME != "image/png" {
		t.Fatalf("unexpected mime %s", obj.MIME)
	}
	if !strings.HasPrefix(obj.PublicURL, "https://cdn.example.com/storage/customer-backgrounds/user-1/") || !strings.HasSuffix(obj.PublicURL, ".png") {
		t.Fatalf("unexpected url %s", obj.PublicURL)
	}
	if _, err := os.Stat(filepath.Join(dir, BucketBackgrounds, filepath.FromSlash(obj.Path))); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestUploadRejectsWrongType(t *testing.T) {
	l, _ := NewLocal(t.TempDir(), "http://localhost")
	_, err := l.Upload(BucketBackgrounds, "u", strings.NewReader("just some text"))
	if !errors.Is(err, ErrBadType) {
		t.Fatalf("expected ErrBadType, got %v", err)
	}
	if _, err := l.Upload("nope", "u", bytes.NewReader(tinyPNG)); !errors.Is(err, ErrUnknownBucket) {
		t.Fatalf("expected ErrUnknownBucket, got %v", err)
	}
}

func TestUploadRejectsLargeFile(t *testing.T) {
	l, _ := NewLocal(t.TempDir(), "http://localhost")
	l.Buckets[BucketAttachments] = Bucket{Name: BucketAttachments, MaxBytes: 10, Allowed: []string{"image/"}}
	if _, err := l.Upload(BucketAttachments, "u", bytes.NewReader(tinyPNG)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestSanitizeOwner(t *testing.T) {
	if got := sanitize("../../etc"); got != "etc" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
	if got := sanitize("  "); got != "anonymous" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
}

func TestMessageType(t *testing.T) {
	if MessageType("image/png") != "image" || MessageType("application/pdf") != "file" || MessageType("audio/mpeg") != "audio" {
		t.Fatalf("unexpected mapping")
	}
}
