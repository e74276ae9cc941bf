package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3sdk "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/storage/object"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3sdk.PutObjectInput
	deleted []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3sdk.PutObjectInput, optFns ...func(*s3sdk.Options)) (*s3sdk.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Key)] = data
	f.puts = append(f.puts, params)
	return &s3sdk.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3sdk.GetObjectInput, optFns ...func(*s3sdk.Options)) (*s3sdk.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3sdk.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3sdk.DeleteObjectInput, optFns ...func(*s3sdk.Options)) (*s3sdk.DeleteObjectOutput, error) {
	key := aws.ToString(params.Key)
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return &s3sdk.DeleteObjectOutput{}, nil
}

func TestSaveOpenDeleteWithPrefix(t *testing.T) {
	api := newFakeS3()
	store, err := NewWithClient(api, "bucket", "/credit/", "")
	if err != nil {
		t.Fatalf("NewWithClient: %v", err)
	}
	ctx := context.Background()
	body := "%PDF-1.4\n" + strings.Repeat("x", 700)

	key, size, mime, err := store.Save(ctx, "crm-9", "statement_2.pdf", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(key, object.Namespace+"/") {
		t.Fatalf("key %q not in namespace", key)
	}
	if size != int64(len(body)) || mime != "application/pdf" {
		t.Fatalf("size=%d mime=%q", size, mime)
	}
	put := api.puts[0]
	if aws.ToString(put.Key) != "credit/"+key {
		t.Fatalf("object key = %q", aws.ToString(put.Key))
	}
	if aws.ToString(put.ContentType) != "application/pdf" {
		t.Fatalf("content type = %q", aws.ToString(put.ContentType))
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != body {
		t.Fatalf("round trip mismatch")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "credit/"+key {
		t.Fatalf("deleted = %v", api.deleted)
	}
	var noKey *s3types.NoSuchKey
	if _, err := store.Open(ctx, key); !errors.As(err, &noKey) {
		t.Fatalf("Open after delete err = %v", err)
	}
}

func TestStoreRejectsForeignKeys(t *testing.T) {
	store, _ := NewWithClient(newFakeS3(), "bucket", "", "")
	if _, err := store.Open(context.Background(), "../x"); !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("Open err = %v", err)
	}
	if err := store.Delete(context.Background(), "other/x"); !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("Delete err = %v", err)
	}
}

func TestNewWithClientRequiresBucket(t *testing.T) {
	if _, err := NewWithClient(newFakeS3(), " ", "", ""); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestApplyEncryption(t *testing.T) {
	input := &s3sdk.PutObjectInput{}
	(&Store{}).applyEncryption(input)
	if input.ServerSideEncryption != s3types.ServerSideEncryptionAes256 || input.SSEKMSKeyId != nil {
		t.Fatalf("default encryption = %q", input.ServerSideEncryption)
	}

	input = &s3sdk.PutObjectInput{}
	(&Store{kmsKeyID: "alias/statements"}).applyEncryption(input)
	if input.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || input.SSEKMSKeyId == nil || *input.SSEKMSKeyId != "alias/statements" {
		t.Fatalf("kms encryption not applied: %+v", input)
	}
}
