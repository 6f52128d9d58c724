package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func readAll(t *testing.T, s Storage, root, id string) string {
	t.Helper()
	rc, err := s.Open(context.Background(), root, id)
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", id, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %q failed: %v", id, err)
	}
	return string(b)
}

// exercise runs the checks shared by every backend. The storage must hold
// "post-name.md" = "test" and "post-name-2.md" = "test2" under root "posts".
func exercise(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	ids, err := s.List(ctx, "posts")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	if len(sorted) != 2 || sorted[0] != "post-name-2.md" || sorted[1] != "post-name.md" {
		t.Errorf("List = %v, want post-name.md and post-name-2.md", ids)
	}

	if ok, err := s.Exists(ctx, "posts", "post-name.md"); err != nil || !ok {
		t.Errorf("Exists(post-name.md) = %v, %v, want true", ok, err)
	}
	if ok, err := s.Exists(ctx, "posts", "post-that-does-not-exist.md"); err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v, want false", ok, err)
	}
	if ok, _ := s.Exists(ctx, "posts", "../secret"); ok {
		t.Error("Exists should reject path traversal")
	}

	if got := readAll(t, s, "posts", "post-name.md"); got != "test" {
		t.Errorf("content = %q, want %q", got, "test")
	}
	if _, err := s.Open(ctx, "posts", "missing.md"); err == nil {
		t.Error("Open of a missing item should fail")
	}
	if _, err := s.Open(ctx, "posts", "a/b.md"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Open(a/b.md) error = %v, want ErrInvalidID", err)
	}

	size, err := s.Size(ctx, "posts", "post-name-2.md")
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 5 {
		t.Errorf("Size = %d, want 5", size)
	}
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDir(t *testing.T) {
	base := t.TempDir()
	writeFiles(t, base, map[string]string{
		"posts/post-name.md":    "test",
		"posts/post-name-2.md":  "test2",
		"posts/media/image.png": "png",
	})
	exercise(t, Dir{Base: base})
}

func TestDirListSkipsDirectories(t *testing.T) {
	base := t.TempDir()
	writeFiles(t, base, map[string]string{"posts/a.md": "a", "posts/media/b.png": "b"})
	ids, err := Dir{Base: base}.List(context.Background(), "posts")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "a.md" {
		t.Errorf("List = %v, want [a.md]", ids)
	}
}

func TestDirListMissingRoot(t *testing.T) {
	_, err := Dir{Base: t.TempDir()}.List(context.Background(), "nope")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("List error = %v, want fs.ErrNotExist", err)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.Put("posts", "post-name.md", "test")
	m.Put("posts", "post-name-2.md", "test2")
	exercise(t, m)
}

func TestMemoryPreservesInsertionOrder(t *testing.T) {
	m := NewMemory()
	for _, id := range []string{"c.md", "a.md", "b.md"} {
		m.Put("", id, id)
	}
	m.Put("", "a.md", "replaced")
	ids, _ := m.List(context.Background(), "")
	if strings.Join(ids, ",") != "c.md,a.md,b.md" {
		t.Errorf("List = %v, want insertion order", ids)
	}
	if got := readAll(t, m, "", "a.md"); got != "replaced" {
		t.Errorf("content = %q, want %q", got, "replaced")
	}
}

func TestMemoryRoots(t *testing.T) {
	m := NewMemory()
	if _, err := m.List(context.Background(), "abc"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("List of unknown root error = %v, want fs.ErrNotExist", err)
	}
	m.AddRoot("empty")
	ids, err := m.List(context.Background(), "empty")
	if err != nil || len(ids) != 0 {
		t.Errorf("List(empty) = %v, %v, want no items", ids, err)
	}
}

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	p := aws.ToString(params.Prefix)
	var keys []string
	prefixes := make(map[string]bool)
	for key := range f.objects {
		if !strings.HasPrefix(key, p) {
			continue
		}
		rest := strings.TrimPrefix(key, p)
		if i := strings.Index(rest, "/"); i >= 0 {
			prefixes[p+rest[:i+1]] = true
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	for cp := range prefixes {
		out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
	}
	return out, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	content, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "not found"}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(content)))}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	content, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "no such key"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(content)))}, nil
}

func TestS3(t *testing.T) {
	s := &S3{
		Bucket: "blog",
		Client: &fakeS3{objects: map[string]string{
			"posts/post-name.md":       "test",
			"posts/post-name-2.md":     "test2",
			"posts/media/image.png":    "png",
			"drafts/unrelated-post.md": "x",
		}},
	}
	exercise(t, s)
	if _, err := s.Open(context.Background(), "posts", "missing.md"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open of missing key error = %v, want fs.ErrNotExist", err)
	}
}

func TestS3ListMissingRoot(t *testing.T) {
	s := &S3{
		Bucket: "blog",
		Client: &fakeS3{objects: map[string]string{
			"posts/post-name.md":  "test",
			"archive/2018/old.md": "old",
		}},
	}
	ctx := context.Background()
	if _, err := s.List(ctx, "drafts"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("List(drafts) error = %v, want fs.ErrNotExist", err)
	}
	ids, err := s.List(ctx, "archive")
	if err != nil || len(ids) != 0 {
		t.Errorf("List(archive) = %v, %v, want an existing empty root", ids, err)
	}
}

func TestNewS3ClientEndpoint(t *testing.T) {
	plain := newS3Client(S3Config{Region: "us-east-1", Bucket: "blog"}).Options()
	if plain.BaseEndpoint != nil {
		t.Errorf("BaseEndpoint = %q, want the regional AWS endpoint", *plain.BaseEndpoint)
	}
	if plain.UsePathStyle {
		t.Error("UsePathStyle set for plain AWS")
	}

	custom := newS3Client(S3Config{Endpoint: "https://s3.example.com", Region: "auto", Bucket: "blog"}).Options()
	if custom.BaseEndpoint == nil || *custom.BaseEndpoint != "https://s3.example.com" {
		t.Errorf("BaseEndpoint = %v, want https://s3.example.com", custom.BaseEndpoint)
	}
	if !custom.UsePathStyle {
		t.Error("UsePathStyle not set for a custom endpoint")
	}
}

type osSFTP struct{}

func (osSFTP) ReadDir(p string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (osSFTP) Stat(p string) (os.FileInfo, error) {
	return os.Stat(p)
}

func TestSFTP(t *testing.T) {
	base := t.TempDir()
	writeFiles(t, base, map[string]string{
		"posts/post-name.md":   "test",
		"posts/post-name-2.md": "test2",
	})
	s := &SFTP{
		RootDir: base,
		client:  osSFTP{},
		open: func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		},
	}
	exercise(t, s)
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestDialSFTPRequiresHostKey(t *testing.T) {
	if _, err := DialSFTP(SFTPConfig{Addr: "127.0.0.1:22"}); err == nil {
		t.Error("DialSFTP without a host key should fail")
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"post.md", true},
		{"", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
