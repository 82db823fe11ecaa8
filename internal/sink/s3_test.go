package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type mockPutter struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (m *mockPutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.bucket, m.key, m.contentType = *in.Bucket, *in.Key, *in.ContentType
	m.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestParseS3Ref(t *testing.T) {
	tests := []struct {
		ref, bucket, prefix string
		wantErr             bool
	}{
		{"s3://grades/2025/fall", "grades", "2025/fall", false},
		{"s3://grades/", "grades", "", false},
		{"s3://grades", "grades", "", false},
		{"s3:///prefix", "", "", true},
		{"grades/prefix", "", "", true},
	}
	for _, tt := range tests {
		bucket, prefix, err := ParseS3Ref(tt.ref)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: unexpected error state: %v", tt.ref, err)
			continue
		}
		if bucket != tt.bucket || prefix != tt.prefix {
			t.Errorf("%q: expected %q %q, got %q %q", tt.ref, tt.bucket, tt.prefix, bucket, prefix)
		}
	}
}

func TestS3Sink_Upload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essay.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.3"), 0644); err != nil {
		t.Fatal(err)
	}
	m := &mockPutter{}
	s := &S3Sink{s3: m, bucket: "grades", prefix: "fall"}

	ref, err := s.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "s3://grades/fall/essay.pdf" {
		t.Errorf("unexpected ref %q", ref)
	}
	if m.key != "fall/essay.pdf" || m.contentType != "application/pdf" || string(m.body) != "%PDF-1.3" {
		t.Errorf("unexpected upload: %+v", m)
	}
}

func TestS3Sink_Upload_Error(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essay.txt")
	os.WriteFile(path, []byte("x"), 0644)
	s := &S3Sink{s3: &mockPutter{err: errors.New("denied")}, bucket: "grades"}

	if _, err := s.Upload(context.Background(), path); err == nil {
		t.Error("expected upload error")
	}
}
